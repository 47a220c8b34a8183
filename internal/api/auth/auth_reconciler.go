package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FACorreiaa/go-authify/internal/types"
)

// IdentityReconciler maps a credential source onto exactly one canonical user.
type IdentityReconciler struct {
	users         UserStore
	verifier      *CredentialVerifier
	strictLinking bool
	now           func() time.Time
	logger        *slog.Logger
}

func NewIdentityReconciler(users UserStore, verifier *CredentialVerifier, strictLinking bool, logger *slog.Logger) *IdentityReconciler {
	return &IdentityReconciler{
		users:         users,
		verifier:      verifier,
		strictLinking: strictLinking,
		now:           time.Now,
		logger:        logger,
	}
}

// ResolveLocal authenticates an email and password pair. Every rejection is
// types.ErrInvalidCredentials so the caller cannot tell an unknown email from
// a wrong password, a provider-only account or a deactivated one.
func (r *IdentityReconciler) ResolveLocal(ctx context.Context, email, password string) (*types.User, error) {
	l := r.logger.With(slog.String("method", "ResolveLocal"))

	user, err := r.users.FindByEmail(ctx, types.NormalizeEmail(email))
	switch {
	case errors.Is(err, types.ErrNotFound):
		r.verifier.Burn(password)
		l.DebugContext(ctx, "Login for unknown email")
		return nil, types.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.HasPassword() {
		r.verifier.Burn(password)
		l.DebugContext(ctx, "Password login for provider-only account", slog.String("userID", user.ID.String()))
		return nil, types.ErrInvalidCredentials
	}
	if !r.verifier.Verify(password, user.PasswordHash) {
		l.DebugContext(ctx, "Password mismatch", slog.String("userID", user.ID.String()))
		return nil, types.ErrInvalidCredentials
	}
	// checked after the hash compare so inactive accounts cost the same
	if !user.IsActive {
		l.InfoContext(ctx, "Login for inactive account", slog.String("userID", user.ID.String()))
		return nil, types.ErrInvalidCredentials
	}

	return r.stampLogin(ctx, user)
}

// ResolveOrCreateExternal finds or provisions the account for a verified
// provider identity. The bool result reports whether a new account was created.
func (r *IdentityReconciler) ResolveOrCreateExternal(ctx context.Context, identity *types.ExternalIdentity) (*types.User, bool, error) {
	if identity == nil || strings.TrimSpace(identity.Email) == "" {
		return nil, false, fmt.Errorf("%w: identity has no email", types.ErrInvalidProviderToken)
	}
	email := types.NormalizeEmail(identity.Email)
	l := r.logger.With(slog.String("method", "ResolveOrCreateExternal"), slog.String("provider", identity.Provider))

	user, err := r.users.FindByEmail(ctx, email)
	if err == nil {
		user, err = r.linkExisting(ctx, l, user, identity)
		return user, false, err
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	nu := types.NewUser{
		Email:      email,
		Role:       types.RoleUser,
		IsActive:   true,
		IsVerified: identity.EmailVerified,
	}
	if name := strings.TrimSpace(identity.FullName); name != "" {
		nu.FullName = &name
	}

	created, err := r.users.Create(ctx, nu)
	if errors.Is(err, types.ErrDuplicateKey) {
		// lost a race with a concurrent first login for the same email
		l.InfoContext(ctx, "Concurrent account creation, reusing existing user")
		user, err := r.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load concurrently created user: %w", err)
		}
		user, err = r.linkExisting(ctx, l, user, identity)
		return user, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	l.InfoContext(ctx, "Provisioned account from provider identity", slog.String("userID", created.ID.String()))
	created, err = r.stampLogin(ctx, created)
	return created, true, err
}

// linkExisting admits a provider login onto an account that already exists.
// Nothing is written unless the link is allowed and the account is active.
func (r *IdentityReconciler) linkExisting(ctx context.Context, l *slog.Logger, user *types.User, identity *types.ExternalIdentity) (*types.User, error) {
	if err := r.canLink(user, identity); err != nil {
		l.WarnContext(ctx, "Refusing to link provider identity", slog.String("userID", user.ID.String()), slog.Any("error", err))
		return nil, err
	}
	if !user.IsActive {
		l.InfoContext(ctx, "Provider login for inactive account", slog.String("userID", user.ID.String()))
		return nil, types.ErrInvalidCredentials
	}
	return r.stampLogin(ctx, user)
}

func (r *IdentityReconciler) canLink(user *types.User, identity *types.ExternalIdentity) error {
	if !identity.EmailVerified {
		return fmt.Errorf("%w: provider did not verify the email", types.ErrAccountLinkRefused)
	}
	if r.strictLinking && !user.IsVerified {
		return fmt.Errorf("%w: local account is not verified", types.ErrAccountLinkRefused)
	}
	return nil
}

func (r *IdentityReconciler) stampLogin(ctx context.Context, user *types.User) (*types.User, error) {
	now := r.now().UTC()
	updated, err := r.users.Update(ctx, user.ID, types.UserPatch{LastLoginAt: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	return updated, nil
}
