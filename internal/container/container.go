package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-authify/app/db"
	appMiddleware "github.com/FACorreiaa/go-authify/app/middleware"
	"github.com/FACorreiaa/go-authify/app/observability/metrics"
	"github.com/FACorreiaa/go-authify/config"
	"github.com/FACorreiaa/go-authify/internal/api/auth"
	"github.com/FACorreiaa/go-authify/internal/api/auth/provider"
	"github.com/FACorreiaa/go-authify/internal/api/user"
	api "github.com/FACorreiaa/go-authify/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.AppMetrics

	Pool   *pgxpool.Pool
	SQLite *sql.DB

	UserRepo    user.UserRepo
	AuthService auth.AuthService
	AuthHandler *auth.AuthHandler
	UserHandler *user.HandlerImpl
	RateLimiter *appMiddleware.RateLimiter
}

// NewContainer opens the configured store and wires every service and
// handler on top of it.
func NewContainer(ctx context.Context, cfg *config.Config, m *metrics.AppMetrics, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Metrics: m}

	if err := c.openStore(ctx); err != nil {
		return nil, err
	}

	codec, err := auth.NewTokenCodec(cfg.JWT)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("token codec: %w", err)
	}
	verifier, err := auth.NewCredentialVerifier(cfg.Security.BcryptCost)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("credential verifier: %w", err)
	}

	providers := provider.NewRegistryFromConfig(cfg.OAuth, logger)
	reconciler := auth.NewIdentityReconciler(c.UserRepo, verifier, cfg.OAuth.StrictLinking, logger)

	c.AuthService = auth.NewAuthService(c.UserRepo, codec, verifier, reconciler, providers, m, logger)
	c.AuthHandler = auth.NewAuthHandler(c.AuthService, logger)

	userService := user.NewUserService(c.UserRepo, verifier, logger)
	c.UserHandler = user.NewHandlerImpl(userService, logger)

	c.RateLimiter = appMiddleware.NewRateLimiter(cfg.Security.RateLimitPerMinute, logger)

	logger.Info("Container ready",
		slog.String("driver", cfg.Repositories.Driver),
		slog.Any("providers", providers.Names()))
	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	cfg, logger := c.Config, c.Logger

	switch cfg.Repositories.Driver {
	case "postgres":
		dbConfig, err := database.NewDatabaseConfig(cfg, logger)
		if err != nil {
			return fmt.Errorf("database config: %w", err)
		}
		if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
			return err
		}
		pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
		if err != nil {
			return err
		}
		if !database.WaitForDB(ctx, pool, logger) {
			pool.Close()
			return errors.New("database not ready after waiting")
		}
		c.Pool = pool
		c.UserRepo = user.NewPostgresUserRepo(pool, c.Metrics, logger)

	case "sqlite":
		db, err := database.OpenSQLite(ctx, cfg.Repositories.SQLite.Path, logger)
		if err != nil {
			return err
		}
		c.SQLite = db
		c.UserRepo = user.NewSQLiteUserRepo(db, c.Metrics, logger)

	default:
		return fmt.Errorf("unknown repositories.driver %q", cfg.Repositories.Driver)
	}
	return nil
}

// RouterConfig describes the HTTP surface built from this container.
func (c *Container) RouterConfig(serviceName string) *api.Config {
	return &api.Config{
		ServiceName: serviceName,
		Logger:      c.Logger,
		CORSOrigins: c.Config.Security.CORSOrigins,
		Timeout:     c.Config.Server.Timeout,
		AuthHandler: c.AuthHandler,
		UserHandler: c.UserHandler,
		Sessions:    c.AuthService,
		RateLimit:   c.RateLimiter.Middleware,
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			c.Logger.Warn("Failed to close SQLite database", slog.Any("error", err))
		}
	}
}
