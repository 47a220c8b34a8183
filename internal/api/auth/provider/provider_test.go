package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-authify/config"
	"github.com/FACorreiaa/go-authify/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry(t *testing.T) {
	g, err := NewGoogle(GoogleConfig{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	r := NewRegistry(g)

	got, err := r.Get(NameGoogle)
	require.NoError(t, err)
	assert.Equal(t, NameGoogle, got.Name())

	_, err = r.Get(NameFacebook)
	assert.ErrorIs(t, err, types.ErrProviderNotConfigured)

	_, err = r.Get("myspace")
	assert.ErrorIs(t, err, types.ErrProviderNotConfigured)

	var nilRegistry *Registry
	_, err = nilRegistry.Get(NameGoogle)
	assert.ErrorIs(t, err, types.ErrProviderNotConfigured)
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("NothingConfigured", func(t *testing.T) {
		r := NewRegistryFromConfig(config.OAuthConfig{}, discardLogger())
		assert.Empty(t, r.Names())
	})

	t.Run("HalfConfiguredIsSkipped", func(t *testing.T) {
		r := NewRegistryFromConfig(config.OAuthConfig{
			Google:   config.ProviderConfig{ClientID: "id"},
			Facebook: config.ProviderConfig{ClientID: "app", ClientSecret: "secret"},
		}, discardLogger())
		assert.Equal(t, []string{NameFacebook}, r.Names())
	})

	t.Run("Both", func(t *testing.T) {
		r := NewRegistryFromConfig(config.OAuthConfig{
			RedirectURI: "http://localhost:8000/api/v1/auth",
			Google:      config.ProviderConfig{ClientID: "id", ClientSecret: "secret"},
			Facebook:    config.ProviderConfig{ClientID: "app", ClientSecret: "secret"},
		}, discardLogger())
		assert.Equal(t, []string{NameFacebook, NameGoogle}, r.Names())

		g, err := r.Get(NameGoogle)
		require.NoError(t, err)
		assert.Contains(t, g.AuthorizationURL("s"), "google%2Fcallback")
	})
}

func TestRunBounded(t *testing.T) {
	t.Run("ReturnsResult", func(t *testing.T) {
		v, err := runBounded(context.Background(), time.Second, func(context.Context) (int, error) {
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("GivesUpOnTimeout", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		start := time.Now()
		_, err := runBounded(context.Background(), 20*time.Millisecond, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Less(t, time.Since(start), time.Second)
	})
}
