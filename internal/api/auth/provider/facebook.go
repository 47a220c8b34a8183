package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/markbates/goth/providers/facebook"

	"github.com/FACorreiaa/go-authify/internal/types"
)

const facebookGraphURL = "https://graph.facebook.com"

// FacebookConfig configures the Facebook provider.
type FacebookConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	Timeout     time.Duration
	HTTPClient  *http.Client

	// GraphURL overrides the Graph API base used for debug_token.
	GraphURL string
}

// Facebook verifies Facebook user access tokens. The dialog URL, code
// exchange and profile fetch go through goth; token introspection calls the
// Graph debug_token endpoint directly since goth does not expose it.
type Facebook struct {
	goth     *facebook.Provider
	appID    string
	appToken string
	graphURL string
	timeout  time.Duration
	client   *http.Client
}

var _ Provider = (*Facebook)(nil)

func NewFacebook(cfg FacebookConfig) (*Facebook, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("%w: facebook app id and secret are required", types.ErrProviderNotConfigured)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = facebookGraphURL
	}

	p := facebook.New(cfg.AppID, cfg.AppSecret, cfg.RedirectURL, "email", "public_profile")
	p.HTTPClient = cfg.HTTPClient

	// app access token, accepted by Graph in place of a client_credentials grant
	appToken := cfg.AppID + "|" + cfg.AppSecret

	return &Facebook{
		goth:     p,
		appID:    cfg.AppID,
		appToken: appToken,
		graphURL: cfg.GraphURL,
		timeout:  cfg.Timeout,
		client:   cfg.HTTPClient,
	}, nil
}

func (f *Facebook) Name() string {
	return NameFacebook
}

// AuthorizationURL returns "" when goth cannot build the dialog URL; callers
// treat that as a provider that is not usable.
func (f *Facebook) AuthorizationURL(state string) string {
	sess, err := f.goth.BeginAuth(state)
	if err != nil {
		return ""
	}
	u, err := sess.GetAuthURL()
	if err != nil {
		return ""
	}
	return u
}

func (f *Facebook) ExchangeCode(ctx context.Context, code, _ string) (*types.ExternalIdentity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", types.ErrExchangeFailed)
	}
	identity, err := runBounded(ctx, f.timeout, func(ctx context.Context) (*types.ExternalIdentity, error) {
		sess := &facebook.Session{}
		if _, err := sess.Authorize(f.goth, url.Values{"code": {code}}); err != nil {
			return nil, fmt.Errorf("facebook token exchange: %w", scrubURLError(err))
		}
		if sess.AccessToken == "" {
			return nil, errors.New("facebook did not return an access token")
		}
		return f.verify(ctx, sess.AccessToken)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrExchangeFailed, err)
	}
	return identity, nil
}

func (f *Facebook) VerifyToken(ctx context.Context, token string) (*types.ExternalIdentity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", types.ErrInvalidProviderToken)
	}
	identity, err := runBounded(ctx, f.timeout, func(ctx context.Context) (*types.ExternalIdentity, error) {
		return f.verify(ctx, token)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidProviderToken, err)
	}
	return identity, nil
}

type debugTokenResponse struct {
	Data struct {
		AppID   string `json:"app_id"`
		UserID  string `json:"user_id"`
		IsValid bool   `json:"is_valid"`
	} `json:"data"`
}

// verify introspects the user token, then loads the profile it belongs to.
func (f *Facebook) verify(ctx context.Context, accessToken string) (*types.ExternalIdentity, error) {
	debug, err := f.debugToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !debug.Data.IsValid {
		return nil, errors.New("facebook reports token as invalid")
	}
	if debug.Data.AppID != f.appID {
		return nil, errors.New("facebook token was issued to a different app")
	}

	user, err := f.goth.FetchUser(&facebook.Session{AccessToken: accessToken})
	if err != nil {
		return nil, fmt.Errorf("facebook profile: %w", scrubURLError(err))
	}
	if debug.Data.UserID != "" && user.UserID != debug.Data.UserID {
		return nil, errors.New("facebook profile does not match token owner")
	}
	if user.Email == "" {
		return nil, errors.New("facebook profile has no email")
	}

	return &types.ExternalIdentity{
		Provider:      NameFacebook,
		Subject:       user.UserID,
		Email:         user.Email,
		FullName:      user.Name,
		EmailVerified: true, // Facebook only releases confirmed addresses
		AvatarURL:     user.AvatarURL,
	}, nil
}

func (f *Facebook) debugToken(ctx context.Context, accessToken string) (*debugTokenResponse, error) {
	q := url.Values{}
	q.Set("input_token", accessToken)
	q.Set("access_token", f.appToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"/debug_token?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build debug_token request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("debug_token request: %w", scrubURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("debug_token returned status %d", resp.StatusCode)
	}
	var out debugTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode debug_token: %w", err)
	}
	return &out, nil
}

// scrubURLError drops the query from transport errors. Graph URLs carry the
// user token, the app access token and appsecret_proof, and these errors end
// up in logs.
func scrubURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	target := "graph api"
	if u, perr := url.Parse(ue.URL); perr == nil {
		target = u.Scheme + "://" + u.Host + u.Path
	}
	return fmt.Errorf("%s %s: %w", ue.Op, target, ue.Err)
}
