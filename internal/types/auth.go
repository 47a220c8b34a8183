package types

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind distinguishes short-lived access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Valid reports whether k is a known kind.
func (k TokenKind) Valid() bool {
	return k == TokenAccess || k == TokenRefresh
}

// TokenClaims is the decoded, validated content of a session token.
type TokenClaims struct {
	Subject   string
	Kind      TokenKind
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is returned on every successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"bearer"`
}

// ExternalIdentity is what a provider asserts about the person behind a
// credential. It is never persisted.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	FullName      string
	EmailVerified bool
	AvatarURL     string
}

// SessionInfo is the result of verifying an access token.
type SessionInfo struct {
	Valid    bool      `json:"valid"`
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	IsActive bool      `json:"is_active"`
}

// ProviderLoginResult is a token pair plus the public profile of the
// resolved account.
type ProviderLoginResult struct {
	TokenPair
	User    *User `json:"user"`
	Created bool  `json:"created"`
}

// RegisterRequest is the body of the register endpoint.
type RegisterRequest struct {
	Email    string  `json:"email" example:"john.doe@example.com"`
	Password string  `json:"password" example:"s3cret-pass"`
	FullName *string `json:"full_name,omitempty" example:"John Doe"`
	Role     *Role   `json:"role,omitempty" example:"USER"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// LoginRequest is the body of the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" example:"john.doe@example.com"`
	Password string `json:"password" example:"s3cret-pass"`
}

// RefreshRequest is the body of the refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VerifyTokenRequest is the body of the verify-token endpoint.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// ProviderTokenRequest carries a credential obtained directly from a provider
// (an ID token for Google, an access token for Facebook).
type ProviderTokenRequest struct {
	Token string `json:"token"`
}

// AuthorizationURLResponse is returned when starting a provider login.
type AuthorizationURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state,omitempty"`
}

// Response is a generic acknowledgement body.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
