package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrDuplicateEmail, KindDuplicateEmail},
		{fmt.Errorf("register: %w", ErrDuplicateEmail), KindDuplicateEmail},
		{ErrInvalidToken, KindInvalidSession},
		{fmt.Errorf("%w: expired", ErrInvalidSession), KindInvalidSession},
		{fmt.Errorf("%w: users_email_lower_key", ErrDuplicateKey), KindInternal},
		{ErrAccountLinkRefused, KindAccountLinkRefused},
		{ErrRateLimited, KindRateLimited},
		{errors.New("boom"), KindInternal},
		{nil, KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a.b@example.com", NormalizeEmail("  A.B@Example.COM\t"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a.b@example.com"))
	for _, bad := range []string{"", "not-an-email", "Bob <bob@example.com>", "<bob@example.com>", `"bob"@example.com`, "a b@example.com"} {
		assert.False(t, ValidEmail(bad), bad)
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("user").Valid())
	assert.False(t, Role("").Valid())
}
