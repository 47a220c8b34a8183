// Package provider verifies credentials issued by external identity
// providers and turns them into normalized identities. Providers make no
// account decisions: they never create, link or look up users.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/FACorreiaa/go-authify/config"
	"github.com/FACorreiaa/go-authify/internal/types"
)

const (
	NameGoogle   = "google"
	NameFacebook = "facebook"

	defaultTimeout = 10 * time.Second
)

// Provider is the capability set shared by every external identity provider.
type Provider interface {
	// Name is the identifier used in routes and in the registry.
	Name() string

	// AuthorizationURL returns the URL the browser is sent to. state is
	// passed through untouched.
	AuthorizationURL(state string) string

	// ExchangeCode redeems an authorization code and verifies the resulting
	// credential. Any failure is types.ErrExchangeFailed.
	ExchangeCode(ctx context.Context, code, state string) (*types.ExternalIdentity, error)

	// VerifyToken checks a credential obtained directly from the provider.
	// Any failure is types.ErrInvalidProviderToken.
	VerifyToken(ctx context.Context, token string) (*types.ExternalIdentity, error)
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers the given providers. Later duplicates win.
func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrProviderNotConfigured, name)
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrProviderNotConfigured, name)
	}
	return p, nil
}

// Names lists the registered providers in a stable order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds every provider whose credentials are present.
// Providers without credentials are left out, so requests for them surface
// types.ErrProviderNotConfigured.
func NewRegistryFromConfig(cfg config.OAuthConfig, logger *slog.Logger) *Registry {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	var list []Provider
	if cfg.Google.Configured() {
		g, err := NewGoogle(GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  callbackURL(cfg.RedirectURI, NameGoogle),
			Timeout:      timeout,
			HTTPClient:   client,
		})
		if err != nil {
			logger.Warn("Google provider disabled", slog.Any("error", err))
		} else {
			list = append(list, g)
		}
	} else {
		logger.Info("Google provider not configured")
	}

	if cfg.Facebook.Configured() {
		f, err := NewFacebook(FacebookConfig{
			AppID:       cfg.Facebook.ClientID,
			AppSecret:   cfg.Facebook.ClientSecret,
			RedirectURL: callbackURL(cfg.RedirectURI, NameFacebook),
			Timeout:     timeout,
			HTTPClient:  client,
		})
		if err != nil {
			logger.Warn("Facebook provider disabled", slog.Any("error", err))
		} else {
			list = append(list, f)
		}
	} else {
		logger.Info("Facebook provider not configured")
	}

	r := NewRegistry(list...)
	logger.Info("Identity providers registered", slog.Any("providers", r.Names()))
	return r
}

// callbackURL derives the per-provider redirect from the configured base.
func callbackURL(base, name string) string {
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/callback", base, name)
}

// runBounded runs fn under a deadline of timeout and gives up as soon as ctx
// is done, even if fn itself does not observe ctx.
func runBounded[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
