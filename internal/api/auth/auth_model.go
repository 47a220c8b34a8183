package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-authify/internal/types"
)

// UserStore is the persistence contract the auth core needs. Implementations
// return types.ErrNotFound for a missing user and types.ErrDuplicateKey when a
// write would violate email uniqueness.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	FindByEmail(ctx context.Context, email string) (*types.User, error)
	Create(ctx context.Context, u types.NewUser) (*types.User, error)
	Update(ctx context.Context, id uuid.UUID, patch types.UserPatch) (*types.User, error)
}

// Flow labels used for metrics and logs.
const (
	flowRegister      = "register"
	flowLogin         = "login"
	flowProviderCode  = "provider_code"
	flowProviderToken = "provider_token"
	flowRefresh       = "refresh"
	flowVerify        = "verify"
)
