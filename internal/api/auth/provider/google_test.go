package provider

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-authify/internal/types"
)

const testGoogleClientID = "client-123.apps.googleusercontent.com"

type googleFixture struct {
	key      *rsa.PrivateKey
	now      time.Time
	provider *Google
}

func newGoogleFixture(t *testing.T, tokenURL string) *googleFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g, err := NewGoogle(GoogleConfig{
		ClientID:     testGoogleClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/api/v1/auth/google/callback",
		Timeout:      2 * time.Second,
		TokenURL:     tokenURL,
		KeySet:       &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)
	return &googleFixture{key: key, now: now, provider: g}
}

func (f *googleFixture) idToken(t *testing.T, mutate func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testGoogleClientID,
		"azp":            testGoogleClientID,
		"sub":            "1234567890",
		"email":          "Alice@Example.com",
		"email_verified": true,
		"name":           "Alice Example",
		"picture":        "https://example.com/a.png",
		"iat":            f.now.Unix(),
		"exp":            f.now.Add(time.Hour).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestNewGoogle_RequiresCredentials(t *testing.T) {
	_, err := NewGoogle(GoogleConfig{ClientID: "id"})
	assert.ErrorIs(t, err, types.ErrProviderNotConfigured)
	_, err = NewGoogle(GoogleConfig{ClientSecret: "secret"})
	assert.ErrorIs(t, err, types.ErrProviderNotConfigured)
}

func TestGoogle_AuthorizationURL(t *testing.T) {
	f := newGoogleFixture(t, "")
	raw := f.provider.AuthorizationURL("xyz-state")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, testGoogleClientID, q.Get("client_id"))
	assert.Equal(t, "xyz-state", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "http://localhost/api/v1/auth/google/callback", q.Get("redirect_uri"))
}

func TestGoogle_VerifyToken(t *testing.T) {
	f := newGoogleFixture(t, "")
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		id, err := f.provider.VerifyToken(ctx, f.idToken(t, nil))
		require.NoError(t, err)
		assert.Equal(t, NameGoogle, id.Provider)
		assert.Equal(t, "1234567890", id.Subject)
		assert.Equal(t, "Alice@Example.com", id.Email)
		assert.Equal(t, "Alice Example", id.FullName)
		assert.True(t, id.EmailVerified)
		assert.Equal(t, "https://example.com/a.png", id.AvatarURL)
	})

	t.Run("BareIssuer", func(t *testing.T) {
		_, err := f.provider.VerifyToken(ctx, f.idToken(t, func(c jwt.MapClaims) { c["iss"] = "accounts.google.com" }))
		assert.NoError(t, err)
	})

	t.Run("StringEmailVerified", func(t *testing.T) {
		id, err := f.provider.VerifyToken(ctx, f.idToken(t, func(c jwt.MapClaims) { c["email_verified"] = "false" }))
		require.NoError(t, err)
		assert.False(t, id.EmailVerified)
	})

	t.Run("NoAuthorizedParty", func(t *testing.T) {
		_, err := f.provider.VerifyToken(ctx, f.idToken(t, func(c jwt.MapClaims) { delete(c, "azp") }))
		assert.NoError(t, err)
	})

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	rejects := []struct {
		name  string
		token func() string
	}{
		{"WrongAudience", func() string {
			return f.idToken(t, func(c jwt.MapClaims) { c["aud"] = "someone-else" })
		}},
		{"WrongIssuer", func() string {
			return f.idToken(t, func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" })
		}},
		{"WrongAuthorizedParty", func() string {
			return f.idToken(t, func(c jwt.MapClaims) { c["azp"] = "other-client" })
		}},
		{"Expired", func() string {
			return f.idToken(t, func(c jwt.MapClaims) { c["exp"] = f.now.Add(-time.Minute).Unix() })
		}},
		{"MissingEmail", func() string {
			return f.idToken(t, func(c jwt.MapClaims) { delete(c, "email") })
		}},
		{"ForeignKey", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
				"iss": "https://accounts.google.com", "aud": testGoogleClientID,
				"sub": "1", "email": "a@b.c", "exp": f.now.Add(time.Hour).Unix(),
			}).SignedString(other)
			require.NoError(t, err)
			return s
		}},
		{"HMACSigned", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"iss": "https://accounts.google.com", "aud": testGoogleClientID,
				"sub": "1", "email": "a@b.c", "exp": f.now.Add(time.Hour).Unix(),
			}).SignedString([]byte("secret"))
			require.NoError(t, err)
			return s
		}},
		{"Garbage", func() string { return "not.a.token" }},
		{"Empty", func() string { return "" }},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.provider.VerifyToken(ctx, tt.token())
			assert.Nil(t, id)
			assert.ErrorIs(t, err, types.ErrInvalidProviderToken)
		})
	}
}

func TestGoogle_ExchangeCode(t *testing.T) {
	var idToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.PostForm.Get("code") {
		case "good-code":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "ya29.token",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"id_token":     idToken,
			})
		case "no-id-token":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "ya29.token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "slow":
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}
	}))
	defer srv.Close()

	f := newGoogleFixture(t, srv.URL+"/token")
	idToken = f.idToken(t, nil)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		id, err := f.provider.ExchangeCode(ctx, "good-code", "state")
		require.NoError(t, err)
		assert.Equal(t, "1234567890", id.Subject)
	})

	t.Run("ProviderRejectsCode", func(t *testing.T) {
		id, err := f.provider.ExchangeCode(ctx, "bad-code", "state")
		assert.Nil(t, id)
		assert.ErrorIs(t, err, types.ErrExchangeFailed)
	})

	t.Run("MissingIDToken", func(t *testing.T) {
		_, err := f.provider.ExchangeCode(ctx, "no-id-token", "state")
		assert.ErrorIs(t, err, types.ErrExchangeFailed)
	})

	t.Run("EmptyCode", func(t *testing.T) {
		_, err := f.provider.ExchangeCode(ctx, "", "state")
		assert.ErrorIs(t, err, types.ErrExchangeFailed)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := f.provider.ExchangeCode(cctx, "slow", "state")
		assert.ErrorIs(t, err, types.ErrExchangeFailed)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
