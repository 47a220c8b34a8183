package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

//go:embed config.yml
var embeddedConfig []byte

type JWTConfig struct {
	SecretKey       string        `mapstructure:"secretKey"`
	Algorithm       string        `mapstructure:"algorithm"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`

	// Whole-unit overrides kept for existing deployments.
	AccessTokenExpireMinutes int `mapstructure:"accessTokenExpireMinutes"`
	RefreshTokenExpireDays   int `mapstructure:"refreshTokenExpireDays"`
}

type ProviderConfig struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
}

// Configured reports whether both halves of the client credential are present.
func (p ProviderConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type OAuthConfig struct {
	RedirectURI   string         `mapstructure:"redirectURI"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	StrictLinking bool           `mapstructure:"strictLinking"`
	Google        ProviderConfig `mapstructure:"google"`
	Facebook      ProviderConfig `mapstructure:"facebook"`
}

type SecurityConfig struct {
	BcryptCost         int      `mapstructure:"bcryptCost"`
	RateLimitPerMinute int      `mapstructure:"rateLimitPerMinute"`
	CORSOrigins        []string `mapstructure:"corsOrigins"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Driver   string `mapstructure:"driver"`
		Postgres struct {
			URL      string `mapstructure:"url"`
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
		SQLite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Security SecurityConfig `mapstructure:"security"`
}

// legacyEnv maps config keys to the environment variable names deployments
// already use. AUTHIFY_* prefixed names work for every key as well.
var legacyEnv = map[string]string{
	"mode":                         "APP_ENV",
	"repositories.postgres.url":    "DATABASE_URL",
	"jwt.secretKey":                "JWT_SECRET_KEY",
	"jwt.algorithm":                "JWT_ALGORITHM",
	"jwt.accessTokenExpireMinutes": "JWT_ACCESS_TOKEN_EXPIRE_MINUTES",
	"jwt.refreshTokenExpireDays":   "JWT_REFRESH_TOKEN_EXPIRE_DAYS",
	"oauth.redirectURI":            "OAUTH_REDIRECT_URI",
	"oauth.google.clientID":        "GOOGLE_CLIENT_ID",
	"oauth.google.clientSecret":    "GOOGLE_CLIENT_SECRET",
	"oauth.facebook.clientID":      "FACEBOOK_APP_ID",
	"oauth.facebook.clientSecret":  "FACEBOOK_APP_SECRET",
	"security.bcryptCost":          "BCRYPT_ROUNDS",
	"security.rateLimitPerMinute":  "RATE_LIMIT_PER_MINUTE",
	"security.corsOrigins":         "BACKEND_CORS_ORIGINS",
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("AUTHIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "AUTHIFY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.JWT.AccessTokenExpireMinutes > 0 {
		config.JWT.AccessTokenTTL = time.Duration(config.JWT.AccessTokenExpireMinutes) * time.Minute
	}
	if config.JWT.RefreshTokenExpireDays > 0 {
		config.JWT.RefreshTokenTTL = time.Duration(config.JWT.RefreshTokenExpireDays) * 24 * time.Hour
	}
	// origins from env arrive comma separated and possibly padded
	config.Security.CORSOrigins = splitList(strings.Join(config.Security.CORSOrigins, ","))

	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate fails fast on settings the service cannot run without.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secretKey (JWT_SECRET_KEY) is required"))
	}
	if c.JWT.Algorithm != "" && c.JWT.Algorithm != "HS256" {
		errs = append(errs, fmt.Errorf("jwt.algorithm %q is not supported, only HS256", c.JWT.Algorithm))
	}
	if c.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.accessTokenTTL must be positive"))
	}
	if c.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.refreshTokenTTL must be positive"))
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("security.bcryptCost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Security.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("security.rateLimitPerMinute must not be negative"))
	}
	switch c.Repositories.Driver {
	case "postgres":
		if c.Repositories.Postgres.URL == "" && c.Repositories.Postgres.Host == "" {
			errs = append(errs, errors.New("repositories.postgres needs url (DATABASE_URL) or host"))
		}
	case "sqlite":
		if c.Repositories.SQLite.Path == "" {
			errs = append(errs, errors.New("repositories.sqlite.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("repositories.driver %q must be postgres or sqlite", c.Repositories.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
