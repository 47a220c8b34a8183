package container

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-authify/config"
	"github.com/FACorreiaa/go-authify/internal/types"
	api "github.com/FACorreiaa/go-authify/internal/router"
)

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Repositories.Driver = "sqlite"
	cfg.Repositories.SQLite.Path = filepath.Join(t.TempDir(), "authify.db")
	cfg.JWT.SecretKey = "test-secret-key-that-is-long-enough"
	cfg.JWT.Algorithm = "HS256"
	cfg.JWT.Issuer = "authify"
	cfg.JWT.AccessTokenTTL = 30 * time.Minute
	cfg.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	cfg.Security.BcryptCost = 4
	cfg.Security.RateLimitPerMinute = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func (c client) do(method, path, token string, body any) (int, []byte) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out
}

func (c client) login(email, password string) types.TokenPair {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{Email: email, Password: password})
	require.Equal(c.t, http.StatusOK, status, string(body))
	var pair types.TokenPair
	require.NoError(c.t, json.Unmarshal(body, &pair))
	return pair
}

func TestServiceEndToEndOnSQLite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewContainer(context.Background(), testConfig(t), nil, logger)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	srv := httptest.NewServer(api.SetupRouter(c.RouterConfig("authify")))
	t.Cleanup(srv.Close)
	cl := client{t: t, srv: srv}

	status, body := cl.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy","service":"authify"}`, string(body))

	admin := types.RoleAdmin
	status, body = cl.do(http.MethodPost, "/api/v1/auth/register", "",
		types.RegisterRequest{Email: "root@example.com", Password: "root-pass", Role: &admin})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.NotContains(t, string(body), "password")

	status, _ = cl.do(http.MethodPost, "/api/v1/auth/register", "",
		types.RegisterRequest{Email: "user@example.com", Password: "user-pass"})
	require.Equal(t, http.StatusCreated, status)

	status, body = cl.do(http.MethodPost, "/api/v1/auth/register", "",
		types.RegisterRequest{Email: "USER@example.com", Password: "other"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "Email already registered")

	userPair := cl.login("user@example.com", "user-pass")
	adminPair := cl.login("root@example.com", "root-pass")

	status, body = cl.do(http.MethodGet, "/api/v1/auth/me", userPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var me types.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "user@example.com", me.Email)
	assert.NotNil(t, me.LastLoginAt)

	status, _ = cl.do(http.MethodGet, "/api/v1/users", userPair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = cl.do(http.MethodGet, "/api/v1/users", userPair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "refresh tokens are not access tokens")

	status, body = cl.do(http.MethodGet, "/api/v1/users?limit=10", adminPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var users []types.User
	require.NoError(t, json.Unmarshal(body, &users))
	assert.Len(t, users, 2)

	// deactivation cuts off the outstanding access token
	status, _ = cl.do(http.MethodPost, "/api/v1/users/"+me.ID.String()+"/deactivate", adminPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = cl.do(http.MethodGet, "/api/v1/users/me", userPair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = cl.do(http.MethodPost, "/api/v1/auth/login", "",
		types.LoginRequest{Email: "user@example.com", Password: "user-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = cl.do(http.MethodPost, "/api/v1/auth/refresh", "", types.RefreshRequest{RefreshToken: adminPair.RefreshToken})
	require.Equal(t, http.StatusOK, status)
	var rotated types.TokenPair
	require.NoError(t, json.Unmarshal(body, &rotated))
	assert.NotEmpty(t, rotated.AccessToken)

	status, _ = cl.do(http.MethodGet, "/api/v1/auth/google", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestNewContainerRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Repositories.Driver = "mongo"
	_, err := NewContainer(context.Background(), cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
