package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-authify/app/observability/metrics"
	"github.com/FACorreiaa/go-authify/internal/api/auth/provider"
	"github.com/FACorreiaa/go-authify/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService is the session-authentication surface used by the handlers.
type AuthService interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.User, error)
	Login(ctx context.Context, email, password string) (*types.TokenPair, error)
	ProviderAuthorizationURL(ctx context.Context, providerName, state string) (string, error)
	LoginWithProviderCode(ctx context.Context, providerName, code, state string) (*types.ProviderLoginResult, error)
	LoginWithProviderToken(ctx context.Context, providerName, token string) (*types.ProviderLoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*types.TokenPair, error)
	Verify(ctx context.Context, accessToken string) (*types.SessionInfo, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

// AuthServiceImpl wires the codec, verifier, providers and reconciler together.
type AuthServiceImpl struct {
	users      UserStore
	codec      *TokenCodec
	verifier   *CredentialVerifier
	reconciler *IdentityReconciler
	providers  *provider.Registry
	metrics    *metrics.AppMetrics
	logger     *slog.Logger
}

func NewAuthService(
	users UserStore,
	codec *TokenCodec,
	verifier *CredentialVerifier,
	reconciler *IdentityReconciler,
	providers *provider.Registry,
	m *metrics.AppMetrics,
	logger *slog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		codec:      codec,
		verifier:   verifier,
		reconciler: reconciler,
		providers:  providers,
		metrics:    m,
		logger:     logger,
	}
}

func (s *AuthServiceImpl) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("AuthService").Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish closes out a span and counts the attempt under its error kind.
func (s *AuthServiceImpl) finish(ctx context.Context, span trace.Span, flow string, err error) {
	if err != nil {
		kind := types.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		s.metrics.AuthAttempt(ctx, flow, string(kind))
		return
	}
	span.SetStatus(codes.Ok, "")
	s.metrics.AuthAttempt(ctx, flow, "success")
}

// Register creates a local account. No tokens are issued.
func (s *AuthServiceImpl) Register(ctx context.Context, req types.RegisterRequest) (user *types.User, err error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()
	defer func() { s.finish(ctx, span, flowRegister, err) }()

	l := s.logger.With(slog.String("method", "Register"))

	email := types.NormalizeEmail(req.Email)
	if !types.ValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", types.ErrInvalidInput)
	}
	role := types.RoleUser
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", types.ErrInvalidInput, *req.Role)
		}
		role = *req.Role
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	if _, ferr := s.users.FindByEmail(ctx, email); ferr == nil {
		return nil, types.ErrDuplicateEmail
	} else if !errors.Is(ferr, types.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", ferr)
	}

	hash, err := s.verifier.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	var fullName *string
	if req.FullName != nil {
		if name := strings.TrimSpace(*req.FullName); name != "" {
			fullName = &name
		}
	}

	user, err = s.users.Create(ctx, types.NewUser{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		IsActive:     active,
	})
	if errors.Is(err, types.ErrDuplicateKey) {
		return nil, types.ErrDuplicateEmail
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	s.metrics.UserCreated(ctx, "local")
	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	return user, nil
}

// Login authenticates with email and password and issues a fresh pair.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (pair *types.TokenPair, err error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()
	defer func() { s.finish(ctx, span, flowLogin, err) }()

	user, err := s.reconciler.ResolveLocal(ctx, email, password)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	return s.issue(ctx, flowLogin, user)
}

// ProviderAuthorizationURL returns the URL that starts a provider login.
func (s *AuthServiceImpl) ProviderAuthorizationURL(ctx context.Context, providerName, state string) (string, error) {
	_, span := s.startSpan(ctx, "ProviderAuthorizationURL", attribute.String("provider", providerName))
	defer span.End()

	p, err := s.providers.Get(providerName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.KindOf(err)))
		return "", err
	}
	u := p.AuthorizationURL(state)
	if u == "" {
		err = fmt.Errorf("%w: %s produced no authorization url", types.ErrProviderNotConfigured, providerName)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.KindOf(err)))
		return "", err
	}
	return u, nil
}

// LoginWithProviderCode completes a redirect-based provider login.
func (s *AuthServiceImpl) LoginWithProviderCode(ctx context.Context, providerName, code, state string) (res *types.ProviderLoginResult, err error) {
	ctx, span := s.startSpan(ctx, "LoginWithProviderCode", attribute.String("provider", providerName))
	defer span.End()
	defer func() { s.finish(ctx, span, flowProviderCode, err) }()

	p, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}
	identity, err := s.callProvider(ctx, providerName, "exchange_code", func(ctx context.Context) (*types.ExternalIdentity, error) {
		return p.ExchangeCode(ctx, code, state)
	})
	if err != nil {
		return nil, err
	}
	return s.loginExternal(ctx, flowProviderCode, identity)
}

// LoginWithProviderToken logs in with a credential the client already
// obtained from the provider.
func (s *AuthServiceImpl) LoginWithProviderToken(ctx context.Context, providerName, token string) (res *types.ProviderLoginResult, err error) {
	ctx, span := s.startSpan(ctx, "LoginWithProviderToken", attribute.String("provider", providerName))
	defer span.End()
	defer func() { s.finish(ctx, span, flowProviderToken, err) }()

	p, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}
	identity, err := s.callProvider(ctx, providerName, "verify_token", func(ctx context.Context) (*types.ExternalIdentity, error) {
		return p.VerifyToken(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return s.loginExternal(ctx, flowProviderToken, identity)
}

func (s *AuthServiceImpl) callProvider(ctx context.Context, name, op string, fn func(context.Context) (*types.ExternalIdentity, error)) (*types.ExternalIdentity, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "provider."+op, trace.WithAttributes(attribute.String("provider", name)))
	defer span.End()

	start := time.Now()
	identity, err := fn(ctx)
	s.metrics.ProviderCall(ctx, name, op, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.KindOf(err)))
		s.logger.WarnContext(ctx, "Provider rejected credential",
			slog.String("provider", name), slog.String("op", op), slog.Any("error", err))
		return nil, err
	}
	return identity, nil
}

func (s *AuthServiceImpl) loginExternal(ctx context.Context, flow string, identity *types.ExternalIdentity) (*types.ProviderLoginResult, error) {
	user, created, err := s.reconciler.ResolveOrCreateExternal(ctx, identity)
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.UserCreated(ctx, identity.Provider)
	}
	pair, err := s.issue(ctx, flow, user)
	if err != nil {
		return nil, err
	}
	return &types.ProviderLoginResult{TokenPair: *pair, User: user, Created: created}, nil
}

// Refresh exchanges a valid refresh token for a new pair. Both tokens rotate.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (pair *types.TokenPair, err error) {
	ctx, span := s.startSpan(ctx, "Refresh")
	defer span.End()
	defer func() { s.finish(ctx, span, flowRefresh, err) }()

	user, err := s.sessionUser(ctx, refreshToken, types.TokenRefresh)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, flowRefresh, user)
}

// Verify checks an access token and reports who it belongs to.
func (s *AuthServiceImpl) Verify(ctx context.Context, accessToken string) (info *types.SessionInfo, err error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()
	defer func() { s.finish(ctx, span, flowVerify, err) }()

	user, err := s.sessionUser(ctx, accessToken, types.TokenAccess)
	if err != nil {
		return nil, err
	}
	return &types.SessionInfo{
		Valid:    true,
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	}, nil
}

// CurrentUser loads the account behind an already verified session.
func (s *AuthServiceImpl) CurrentUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := s.startSpan(ctx, "CurrentUser", attribute.String("user.id", userID.String()))
	defer span.End()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// sessionUser decodes token, checks its kind and returns the live user it
// names. Every token or account problem is types.ErrInvalidSession; only
// store failures escape as something else.
func (s *AuthServiceImpl) sessionUser(ctx context.Context, token string, want types.TokenKind) (*types.User, error) {
	l := s.logger.With(slog.String("kind", string(want)))

	claims, err := s.codec.Decode(token)
	if err != nil {
		l.DebugContext(ctx, "Rejected session token", slog.String("reason", FailureReason(err)))
		return nil, types.ErrInvalidSession
	}
	if claims.Kind != want {
		l.DebugContext(ctx, "Rejected session token", slog.String("reason", "wrong_kind"))
		return nil, types.ErrInvalidSession
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		l.DebugContext(ctx, "Rejected session token", slog.String("reason", "subject"))
		return nil, types.ErrInvalidSession
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		l.DebugContext(ctx, "Session for missing user", slog.String("userID", id.String()))
		return nil, types.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if !user.IsActive {
		l.DebugContext(ctx, "Session for inactive user", slog.String("userID", id.String()))
		return nil, types.ErrInvalidSession
	}
	return user, nil
}

func (s *AuthServiceImpl) issue(ctx context.Context, flow string, user *types.User) (*types.TokenPair, error) {
	pair, err := s.codec.IssuePair(user.ID.String())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to issue tokens", slog.Any("error", err))
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	s.metrics.TokensIssued(ctx, flow)
	return pair, nil
}
