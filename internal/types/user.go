package types

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the canonical account record. Accounts created through an external
// provider carry an empty PasswordHash and cannot log in with a password.
type User struct {
	ID           uuid.UUID  `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	Email        string     `json:"email" example:"john.doe@example.com"`
	PasswordHash string     `json:"-"`
	FullName     *string    `json:"full_name,omitempty" example:"John Doe"`
	Role         Role       `json:"role" example:"USER"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// HasPassword reports whether the account can authenticate with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	Email        *string
	FullName     *string
	PasswordHash *string
	Role         *Role
	IsActive     *bool
	IsVerified   *bool
	LastLoginAt  *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.FullName == nil && p.PasswordHash == nil &&
		p.Role == nil && p.IsActive == nil && p.IsVerified == nil && p.LastLoginAt == nil
}

// NewUser is the input to a store Create call.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     *string
	Role         Role
	IsActive     bool
	IsVerified   bool
}

// UpdateProfileParams are the fields a user may change on their own account.
type UpdateProfileParams struct {
	FullName *string `json:"full_name,omitempty" example:"Jane Doe"`
	Password *string `json:"password,omitempty"`
}

// AdminUpdateUserParams are the fields an administrator may change on any account.
type AdminUpdateUserParams struct {
	Email      *string `json:"email,omitempty"`
	FullName   *string `json:"full_name,omitempty"`
	Password   *string `json:"password,omitempty"`
	Role       *Role   `json:"role,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	IsVerified *bool   `json:"is_verified,omitempty"`
}

// ChangeRoleRequest is the body of the change-role admin endpoint.
type ChangeRoleRequest struct {
	Role Role `json:"role" example:"ADMIN"`
}

// ListUsersParams bounds an admin listing.
type ListUsersParams struct {
	Skip  int
	Limit int
}

// NormalizeEmail lower-cases and trims an address so lookups and uniqueness
// agree regardless of how the caller typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare, already normalized address:
// no display name, no angle brackets, nothing mail.ParseAddress would rewrite.
func ValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
