package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-authify/internal/types"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

var _ UserService = (*UserServiceImpl)(nil)

// PasswordHasher hashes new passwords. auth.CredentialVerifier satisfies it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// UserService covers self-service profile edits and the admin surface.
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error)

	ListUsers(ctx context.Context, params types.ListUsersParams) ([]types.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	AdminUpdateUser(ctx context.Context, userID uuid.UUID, params types.AdminUpdateUserParams) (*types.User, error)
	ActivateUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	DeactivateUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	ChangeRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.User, error)
	MarkVerified(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
	hasher PasswordHasher
}

func NewUserService(repo UserRepo, hasher PasswordHasher, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
		hasher: hasher,
	}
}

func (s *UserServiceImpl) startSpan(ctx context.Context, name string, userID uuid.UUID) (context.Context, trace.Span) {
	return otel.Tracer("UserService").Start(ctx, name, trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
}

func endSpan(span trace.Span, err error, okMsg string) {
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, okMsg)
}

// GetProfile returns the caller's own account.
func (s *UserServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (user *types.User, err error) {
	ctx, span := s.startSpan(ctx, "GetProfile", userID)
	defer span.End()
	defer func() { endSpan(span, err, "Profile retrieved") }()

	user, err = s.repo.FindByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch user profile",
			slog.String("method", "GetProfile"), slog.String("userID", userID.String()), slog.Any("error", err))
		return nil, fmt.Errorf("error fetching user profile: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the fields a user may change on their own account.
// At least one of full_name or password must be present.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (user *types.User, err error) {
	ctx, span := s.startSpan(ctx, "UpdateProfile", userID)
	defer span.End()
	defer func() { endSpan(span, err, "Profile updated") }()

	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	if params.FullName == nil && params.Password == nil {
		return nil, fmt.Errorf("%w: no valid fields to update", types.ErrInvalidInput)
	}

	var patch types.UserPatch
	if params.FullName != nil {
		name := strings.TrimSpace(*params.FullName)
		patch.FullName = &name
	}
	if params.Password != nil {
		hash, err := s.hashPassword(*params.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	user, err = s.repo.Update(ctx, userID, patch)
	if err != nil {
		l.WarnContext(ctx, "Failed to update user profile", slog.Any("error", err))
		return nil, fmt.Errorf("error updating user profile: %w", err)
	}
	l.InfoContext(ctx, "User profile updated", slog.Bool("password_changed", params.Password != nil))
	return user, nil
}

// ListUsers pages through all accounts.
func (s *UserServiceImpl) ListUsers(ctx context.Context, params types.ListUsersParams) (users []types.User, err error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListUsers", trace.WithAttributes(
		attribute.Int("skip", params.Skip),
		attribute.Int("limit", params.Limit),
	))
	defer span.End()
	defer func() { endSpan(span, err, "Users listed") }()

	if params.Skip < 0 || params.Limit < 1 || params.Limit > maxListLimit {
		return nil, fmt.Errorf("%w: skip must be >= 0 and limit between 1 and %d", types.ErrInvalidInput, maxListLimit)
	}

	users, err = s.repo.List(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list users", slog.String("method", "ListUsers"), slog.Any("error", err))
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (user *types.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUser", userID)
	defer span.End()
	defer func() { endSpan(span, err, "User retrieved") }()

	user, err = s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return user, nil
}

// AdminUpdateUser applies any subset of account fields. Moving the account to
// an address another account already holds fails with ErrDuplicateEmail.
func (s *UserServiceImpl) AdminUpdateUser(ctx context.Context, userID uuid.UUID, params types.AdminUpdateUserParams) (user *types.User, err error) {
	ctx, span := s.startSpan(ctx, "AdminUpdateUser", userID)
	defer span.End()
	defer func() { endSpan(span, err, "User updated") }()

	l := s.logger.With(slog.String("method", "AdminUpdateUser"), slog.String("userID", userID.String()))

	var patch types.UserPatch
	if params.Email != nil {
		email := types.NormalizeEmail(*params.Email)
		if !types.ValidEmail(email) {
			return nil, fmt.Errorf("%w: invalid email address", types.ErrInvalidInput)
		}
		patch.Email = &email
	}
	if params.FullName != nil {
		name := strings.TrimSpace(*params.FullName)
		patch.FullName = &name
	}
	if params.Password != nil {
		hash, err := s.hashPassword(*params.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}
	if params.Role != nil {
		if !params.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", types.ErrInvalidInput, *params.Role)
		}
		patch.Role = params.Role
	}
	patch.IsActive = params.IsActive
	patch.IsVerified = params.IsVerified

	user, err = s.repo.Update(ctx, userID, patch)
	if errors.Is(err, types.ErrDuplicateKey) {
		return nil, types.ErrDuplicateEmail
	}
	if err != nil {
		l.WarnContext(ctx, "Failed to update user", slog.Any("error", err))
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	l.InfoContext(ctx, "User updated by administrator")
	return user, nil
}

func (s *UserServiceImpl) ActivateUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	active := true
	return s.setFlag(ctx, "ActivateUser", userID, types.UserPatch{IsActive: &active})
}

// DeactivateUser is the soft delete. The account keeps its row but can no
// longer log in, and its outstanding tokens stop verifying.
func (s *UserServiceImpl) DeactivateUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	active := false
	return s.setFlag(ctx, "DeactivateUser", userID, types.UserPatch{IsActive: &active})
}

func (s *UserServiceImpl) ChangeRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", types.ErrInvalidInput, role)
	}
	return s.setFlag(ctx, "ChangeRole", userID, types.UserPatch{Role: &role})
}

func (s *UserServiceImpl) MarkVerified(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	verified := true
	return s.setFlag(ctx, "MarkVerified", userID, types.UserPatch{IsVerified: &verified})
}

func (s *UserServiceImpl) setFlag(ctx context.Context, method string, userID uuid.UUID, patch types.UserPatch) (user *types.User, err error) {
	ctx, span := s.startSpan(ctx, method, userID)
	defer span.End()
	defer func() { endSpan(span, err, method+" succeeded") }()

	user, err = s.repo.Update(ctx, userID, patch)
	if err != nil {
		return nil, fmt.Errorf("error in %s: %w", method, err)
	}
	s.logger.InfoContext(ctx, "User account changed",
		slog.String("method", method), slog.String("userID", userID.String()))
	return user, nil
}

func (s *UserServiceImpl) hashPassword(plaintext string) (string, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, types.ErrInvalidInput) {
			return "", err
		}
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return hash, nil
}
