package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-authify/internal/api"
	"github.com/FACorreiaa/go-authify/internal/types"
)

type AuthHandler struct {
	AuthService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		AuthService: authService,
	}
}

// decode reads a JSON body, turning decoder complaints into input errors.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := api.DecodeJSONBody(w, r, dst); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		api.WriteError(w, r, fmt.Errorf("%w: %s", types.ErrInvalidInput, err.Error()))
		return false
	}
	return true
}

// Register godoc
// @Summary      Register
// @Description  Creates a local account. No tokens are issued.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        user body types.RegisterRequest true "Account details"
// @Success      201 {object} types.User
// @Failure      400 {object} types.Response "Invalid input or email already registered"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req types.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.AuthService.Register(ctx, req)
	if err != nil {
		l.WarnContext(ctx, "Registration failed", slog.String("kind", string(types.KindOf(err))))
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, user)
}

// Login godoc
// @Summary      Login
// @Description  Exchanges email and password for an access and refresh token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body types.LoginRequest true "Credentials"
// @Success      200 {object} types.TokenPair
// @Failure      400 {object} types.Response "Invalid input"
// @Failure      401 {object} types.Response "Incorrect email or password"
// @Failure      429 {object} types.Response "Too many requests"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if types.KindOf(err) == types.KindInvalidCredentials {
			w.Header().Set("WWW-Authenticate", "Bearer")
		} else {
			h.logger.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		}
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, pair)
}

// RefreshSession godoc
// @Summary      Refresh session
// @Description  Rotates both tokens using a valid refresh token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.RefreshRequest true "Refresh token"
// @Success      200 {object} types.TokenPair
// @Failure      401 {object} types.Response "Could not validate credentials"
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if types.KindOf(err) == types.KindInvalidSession {
			w.Header().Set("WWW-Authenticate", "Bearer")
		} else {
			h.logger.ErrorContext(ctx, "Refresh failed", slog.Any("error", err))
		}
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, pair)
}

// VerifyToken godoc
// @Summary      Verify access token
// @Description  Checks an access token for other services and returns the session it belongs to.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.VerifyTokenRequest true "Access token"
// @Success      200 {object} types.SessionInfo
// @Failure      401 {object} types.Response "Invalid token"
// @Router       /auth/verify-token [post]
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.VerifyTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	info, err := h.AuthService.Verify(ctx, req.Token)
	if err != nil {
		if types.KindOf(err) != types.KindInvalidSession {
			h.logger.ErrorContext(ctx, "Token verification failed", slog.Any("error", err))
		}
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, info)
}

// Me godoc
// @Summary      Current user
// @Description  Returns the account behind the bearer token.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.User
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userIDStr, ok := GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.AuthService.CurrentUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load current user", slog.Any("error", err))
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// ProviderLogin godoc
// @Summary      Start provider login
// @Description  Returns the provider's authorization URL. A state is generated when the client does not send one.
// @Tags         Auth
// @Produce      json
// @Param        provider path string true "google or facebook"
// @Param        state query string false "Opaque state echoed back on the callback"
// @Success      200 {object} types.AuthorizationURLResponse
// @Failure      503 {object} types.Response "Provider not configured"
// @Router       /auth/{provider} [get]
func (h *AuthHandler) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.ToLower(chi.URLParam(r, "provider"))

	state := r.URL.Query().Get("state")
	if state == "" {
		state = uuid.NewString()
	}

	authURL, err := h.AuthService.ProviderAuthorizationURL(ctx, name, state)
	if err != nil {
		h.logger.WarnContext(ctx, "Provider login unavailable", slog.String("provider", name), slog.Any("error", err))
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.AuthorizationURLResponse{AuthorizationURL: authURL, State: state})
}

// ProviderCallback godoc
// @Summary      Provider callback
// @Description  Completes a redirect-based provider login and returns a token pair with the account.
// @Tags         Auth
// @Produce      json
// @Param        provider path string true "google or facebook"
// @Param        code query string true "Authorization code"
// @Param        state query string false "State from the login request"
// @Success      200 {object} types.ProviderLoginResult
// @Failure      400 {object} types.Response "Exchange failed"
// @Failure      409 {object} types.Response "Account exists and cannot be linked"
// @Failure      503 {object} types.Response "Provider not configured"
// @Router       /auth/{provider}/callback [get]
func (h *AuthHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.ToLower(chi.URLParam(r, "provider"))
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.logger.InfoContext(ctx, "Provider returned an error", slog.String("provider", name), slog.String("error", errParam))
		api.WriteError(w, r, fmt.Errorf("%w: provider returned %q", types.ErrExchangeFailed, errParam))
		return
	}
	code := q.Get("code")
	if code == "" {
		api.WriteError(w, r, fmt.Errorf("%w: missing code", types.ErrInvalidInput))
		return
	}

	res, err := h.AuthService.LoginWithProviderCode(ctx, name, code, q.Get("state"))
	if err != nil {
		h.logProviderFailure(r, name, err)
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, res)
}

// ProviderToken godoc
// @Summary      Provider token login
// @Description  Logs in with a credential obtained directly from the provider (Google ID token or Facebook access token).
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        provider path string true "google or facebook"
// @Param        body body types.ProviderTokenRequest true "Provider credential"
// @Success      200 {object} types.ProviderLoginResult
// @Failure      400 {object} types.Response "Invalid provider token"
// @Failure      409 {object} types.Response "Account exists and cannot be linked"
// @Failure      503 {object} types.Response "Provider not configured"
// @Router       /auth/{provider}/token [post]
func (h *AuthHandler) ProviderToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.ToLower(chi.URLParam(r, "provider"))

	var req types.ProviderTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		api.WriteError(w, r, fmt.Errorf("%w: token is required", types.ErrInvalidInput))
		return
	}

	res, err := h.AuthService.LoginWithProviderToken(ctx, name, req.Token)
	if err != nil {
		h.logProviderFailure(r, name, err)
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, res)
}

func (h *AuthHandler) logProviderFailure(r *http.Request, name string, err error) {
	attrs := []any{slog.String("provider", name), slog.String("kind", string(types.KindOf(err)))}
	if types.KindOf(err) == types.KindInternal {
		h.logger.ErrorContext(r.Context(), "Provider login failed", append(attrs, slog.Any("error", err))...)
		return
	}
	h.logger.WarnContext(r.Context(), "Provider login rejected", attrs...)
}
