package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/FACorreiaa/go-authify/internal/types"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Google ID tokens carry either form of the issuer.
var googleIssuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

// GoogleConfig configures the Google provider. The endpoint, key set and
// clock fields default to Google's production values.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
	HTTPClient   *http.Client

	AuthURL  string
	TokenURL string
	JWKSURL  string
	KeySet   oidc.KeySet
	Now      func() time.Time
}

// Google verifies Google OpenID Connect ID tokens.
type Google struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	clientID string
	timeout  time.Duration
	client   *http.Client
}

var _ Provider = (*Google)(nil)

func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client id and secret are required", types.ErrProviderNotConfigured)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	keySet := cfg.KeySet
	if keySet == nil {
		jwks := cfg.JWKSURL
		if jwks == "" {
			jwks = googleJWKSURL
		}
		// the key set fetches lazily, on the first verification
		keySet = oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), cfg.HTTPClient), jwks)
	}

	// both issuer spellings are valid, so the issuer is checked after verification
	verifier := oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{
		ClientID:        cfg.ClientID,
		SkipIssuerCheck: true,
		Now:             cfg.Now,
	})

	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: verifier,
		clientID: cfg.ClientID,
		timeout:  cfg.Timeout,
		client:   cfg.HTTPClient,
	}, nil
}

func (g *Google) Name() string {
	return NameGoogle
}

func (g *Google) AuthorizationURL(state string) string {
	return g.oauth.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (g *Google) ExchangeCode(ctx context.Context, code, _ string) (*types.ExternalIdentity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", types.ErrExchangeFailed)
	}
	identity, err := runBounded(ctx, g.timeout, func(ctx context.Context) (*types.ExternalIdentity, error) {
		ctx = oidc.ClientContext(ctx, g.client)
		tok, err := g.oauth.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("google token exchange: %w", err)
		}
		rawIDToken, ok := tok.Extra("id_token").(string)
		if !ok || rawIDToken == "" {
			return nil, errors.New("google did not return an id_token")
		}
		return g.verify(ctx, rawIDToken)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrExchangeFailed, err)
	}
	return identity, nil
}

func (g *Google) VerifyToken(ctx context.Context, token string) (*types.ExternalIdentity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", types.ErrInvalidProviderToken)
	}
	identity, err := runBounded(ctx, g.timeout, func(ctx context.Context) (*types.ExternalIdentity, error) {
		return g.verify(oidc.ClientContext(ctx, g.client), token)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidProviderToken, err)
	}
	return identity, nil
}

type googleClaims struct {
	Subject         string       `json:"sub"`
	Email           string       `json:"email"`
	EmailVerified   flexibleBool `json:"email_verified"`
	Name            string       `json:"name"`
	Picture         string       `json:"picture"`
	AuthorizedParty string       `json:"azp"`
}

// verify checks signature, audience, expiry and issuer of an ID token.
func (g *Google) verify(ctx context.Context, rawIDToken string) (*types.ExternalIdentity, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id_token verification: %w", err)
	}
	if _, ok := googleIssuers[idToken.Issuer]; !ok {
		return nil, fmt.Errorf("unexpected issuer %q", idToken.Issuer)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("id_token claims: %w", err)
	}
	if claims.AuthorizedParty != "" && claims.AuthorizedParty != g.clientID {
		return nil, fmt.Errorf("unexpected authorized party %q", claims.AuthorizedParty)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("id_token missing subject or email")
	}

	return &types.ExternalIdentity{
		Provider:      NameGoogle,
		Subject:       claims.Subject,
		Email:         claims.Email,
		FullName:      claims.Name,
		EmailVerified: bool(claims.EmailVerified),
		AvatarURL:     claims.Picture,
	}, nil
}

// flexibleBool accepts a JSON boolean or its string form. Older Google
// tokens encode email_verified as "true".
type flexibleBool bool

func (b *flexibleBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexibleBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("email_verified: %w", err)
	}
	parsed, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("email_verified: %w", err)
	}
	*b = flexibleBool(parsed)
	return nil
}
