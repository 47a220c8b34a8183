package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-authify/config"
	"github.com/FACorreiaa/go-authify/internal/types"
)

// sessionClaims is the wire shape of a session token.
type sessionClaims struct {
	Kind types.TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec issues and decodes HS256 session tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenCodec struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec builds a codec from the JWT section of the configuration.
func NewTokenCodec(cfg config.JWTConfig) (*TokenCodec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("jwt secret key cannot be empty")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &TokenCodec{
		secret:     []byte(cfg.SecretKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL returns the lifetime of tokens of the given kind.
func (c *TokenCodec) TTL(kind types.TokenKind) time.Duration {
	if kind == types.TokenRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue signs a token for subject. The lifetime depends on kind.
func (c *TokenCodec) Issue(subject string, kind types.TokenKind, now time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", types.ErrInvalidInput)
	}
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown token kind %q", types.ErrInvalidInput, kind)
	}

	claims := sessionClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(kind))),
			ID:        uuid.NewString(),
		},
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// IssuePair issues a fresh access and refresh token for subject.
func (c *TokenCodec) IssuePair(subject string) (*types.TokenPair, error) {
	now := c.now()
	access, err := c.Issue(subject, types.TokenAccess, now)
	if err != nil {
		return nil, err
	}
	refresh, err := c.Issue(subject, types.TokenRefresh, now)
	if err != nil {
		return nil, err
	}
	return &types.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Decode verifies the signature and claims of token. Every failure wraps
// types.ErrInvalidToken; the underlying cause is kept for logging.
func (c *TokenCodec) Decode(token string) (*types.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", types.ErrInvalidToken)
	}
	if !claims.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown token type %q", types.ErrInvalidToken, claims.Kind)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", types.ErrInvalidToken)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: exp not after iat", types.ErrInvalidToken)
	}

	return &types.TokenClaims{
		Subject:   claims.Subject,
		Kind:      claims.Kind,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// FailureReason gives a short, log-safe label for a Decode error.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "claims"
	}
}
