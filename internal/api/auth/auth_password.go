package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-authify/internal/types"
)

// bcrypt silently ignores input past this length, so longer passwords are refused.
const maxPasswordBytes = 72

// CredentialVerifier hashes and checks local passwords.
type CredentialVerifier struct {
	cost int
	// dummyHash is compared against when the account does not exist so the
	// response time does not reveal whether the email is registered.
	dummyHash []byte
}

func NewCredentialVerifier(cost int) (*CredentialVerifier, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range", types.ErrInvalidInput, cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("authify-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &CredentialVerifier{cost: cost, dummyHash: dummy}, nil
}

// Hash returns a salted bcrypt hash of plaintext.
func (v *CredentialVerifier) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: password must not be empty", types.ErrInvalidInput)
	}
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", types.ErrInvalidInput, maxPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. A malformed or empty hash
// is a mismatch, never an error.
func (v *CredentialVerifier) Verify(plaintext, hash string) bool {
	if hash == "" || len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Burn spends roughly the time of one Verify without touching any account.
func (v *CredentialVerifier) Burn(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(plaintext))
}
