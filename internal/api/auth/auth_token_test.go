package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-authify/config"
	"github.com/FACorreiaa/go-authify/internal/types"
)

var testJWTConfig = config.JWTConfig{
	SecretKey:       "test-access-secret",
	Algorithm:       "HS256",
	Issuer:          "test-issuer",
	AccessTokenTTL:  30 * time.Minute,
	RefreshTokenTTL: 7 * 24 * time.Hour,
}

func newTestCodec(t *testing.T, now time.Time) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testJWTConfig)
	require.NoError(t, err)
	return codec.WithClock(func() time.Time { return now })
}

func TestNewTokenCodec(t *testing.T) {
	_, err := NewTokenCodec(config.JWTConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenCodec(config.JWTConfig{SecretKey: "k", AccessTokenTTL: 0, RefreshTokenTTL: time.Hour})
	assert.Error(t, err)
}

func TestTokenCodec_IssueDecode(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	for _, kind := range []types.TokenKind{types.TokenAccess, types.TokenRefresh} {
		t.Run(string(kind), func(t *testing.T) {
			tok, err := codec.Issue("user-1", kind, now)
			require.NoError(t, err)

			claims, err := codec.Decode(tok)
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.Subject)
			assert.Equal(t, kind, claims.Kind)
			assert.Equal(t, now, claims.IssuedAt)
			assert.Equal(t, now.Add(codec.TTL(kind)), claims.ExpiresAt)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestTokenCodec_Expiry(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, issued)
	tok, err := codec.Issue("user-1", types.TokenAccess, issued)
	require.NoError(t, err)

	t.Run("JustBeforeExpiry", func(t *testing.T) {
		c := codec.WithClock(func() time.Time { return issued.Add(30*time.Minute - time.Second) })
		_, err := c.Decode(tok)
		assert.NoError(t, err)
	})

	t.Run("AtExpiry", func(t *testing.T) {
		c := codec.WithClock(func() time.Time { return issued.Add(30 * time.Minute) })
		_, err := c.Decode(tok)
		require.ErrorIs(t, err, types.ErrInvalidToken)
		assert.Equal(t, "expired", FailureReason(err))
	})

	t.Run("RefreshOutlivesAccess", func(t *testing.T) {
		refresh, err := codec.Issue("user-1", types.TokenRefresh, issued)
		require.NoError(t, err)
		c := codec.WithClock(func() time.Time { return issued.Add(24 * time.Hour) })
		_, err = c.Decode(refresh)
		assert.NoError(t, err)
		_, err = c.Decode(tok)
		assert.ErrorIs(t, err, types.ErrInvalidToken)
	})
}

func TestTokenCodec_IssueRejectsBadInput(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, now)

	_, err := codec.Issue("", types.TokenAccess, now)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = codec.Issue("user-1", types.TokenKind("id"), now)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestTokenCodec_TamperedTokenRejected(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)
	tok, err := codec.Issue("user-1", types.TokenAccess, now)
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		b := []byte(tok)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		_, err := codec.Decode(string(b))
		require.ErrorIs(t, err, types.ErrInvalidToken, "byte %d tampered", i)
	}
}

func TestTokenCodec_RejectsForeignTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() sessionClaims {
		return sessionClaims{
			Kind: types.TokenAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "test-issuer",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}
	}

	tests := []struct {
		name   string
		token  func() string
		reason string
	}{
		{"WrongSecret", func() string {
			return sign(jwt.SigningMethodHS256, []byte("other-secret"), base())
		}, "signature"},
		{"HS512", func() string {
			return sign(jwt.SigningMethodHS512, []byte(testJWTConfig.SecretKey), base())
		}, "signature"},
		{"NoneAlgorithm", func() string {
			return sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base())
		}, "signature"},
		{"MissingType", func() string {
			c := base()
			c.Kind = ""
			return sign(jwt.SigningMethodHS256, []byte(testJWTConfig.SecretKey), c)
		}, "claims"},
		{"MissingSubject", func() string {
			c := base()
			c.Subject = ""
			return sign(jwt.SigningMethodHS256, []byte(testJWTConfig.SecretKey), c)
		}, "claims"},
		{"MissingExpiry", func() string {
			c := base()
			c.ExpiresAt = nil
			return sign(jwt.SigningMethodHS256, []byte(testJWTConfig.SecretKey), c)
		}, "claims"},
		{"MissingIssuedAt", func() string {
			c := base()
			c.IssuedAt = nil
			return sign(jwt.SigningMethodHS256, []byte(testJWTConfig.SecretKey), c)
		}, "claims"},
		{"WrongIssuer", func() string {
			c := base()
			c.Issuer = "someone-else"
			return sign(jwt.SigningMethodHS256, []byte(testJWTConfig.SecretKey), c)
		}, "claims"},
		{"Garbage", func() string { return "not-a-token" }, "malformed"},
		{"RawPassword", func() string { return "hunter2" }, "malformed"},
		{"Empty", func() string { return "" }, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token())
			require.ErrorIs(t, err, types.ErrInvalidToken)
			assert.Equal(t, tt.reason, FailureReason(err))
			assert.False(t, strings.Contains(err.Error(), testJWTConfig.SecretKey))
		})
	}
}

func TestTokenCodec_IssuePairDistinct(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, now)

	first, err := codec.IssuePair("user-1")
	require.NoError(t, err)
	second, err := codec.IssuePair("user-1")
	require.NoError(t, err)

	assert.Equal(t, "bearer", first.TokenType)
	assert.NotEqual(t, first.AccessToken, first.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}
