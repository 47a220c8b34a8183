package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-authify/internal/api"
	"github.com/FACorreiaa/go-authify/internal/api/auth"
	"github.com/FACorreiaa/go-authify/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetMyProfile(w http.ResponseWriter, r *http.Request)
	UpdateMyProfile(w http.ResponseWriter, r *http.Request)

	ListUsers(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	UpdateUser(w http.ResponseWriter, r *http.Request)
	ActivateUser(w http.ResponseWriter, r *http.Request)
	DeactivateUser(w http.ResponseWriter, r *http.Request)
	ChangeRole(w http.ResponseWriter, r *http.Request)
	VerifyUser(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	if logger == nil {
		panic("PANIC: Attempting to create HandlerImpl with nil logger!")
	}
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// callerID reads the authenticated user's id placed in the context by auth.Authenticate.
func (h *HandlerImpl) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || idStr == "" {
		api.WriteError(w, r, types.ErrInvalidSession)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		api.WriteError(w, r, types.ErrInvalidSession)
		return uuid.Nil, false
	}
	return id, true
}

// pathUserID parses the {id} route parameter.
func (h *HandlerImpl) pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, r, fmt.Errorf("%w: user id must be a UUID", types.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}

func (h *HandlerImpl) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := api.DecodeJSONBody(w, r, dst); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		api.WriteError(w, r, fmt.Errorf("%w: %s", types.ErrInvalidInput, err.Error()))
		return false
	}
	return true
}

// GetMyProfile godoc
// @Summary      Get own profile
// @Description  Retrieves the authenticated user's account.
// @Tags         User
// @Produce      json
// @Success      200 {object} types.User
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *HandlerImpl) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get user profile", slog.String("handler", "GetMyProfile"), slog.Any("error", err))
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// UpdateMyProfile godoc
// @Summary      Update own profile
// @Description  Changes the authenticated user's full name or password. Any other field is rejected.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        profile body types.UpdateProfileParams true "Fields to change"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response "No valid fields to update"
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /users/me [put]
func (h *HandlerImpl) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var params types.UpdateProfileParams
	if !h.decode(w, r, &params) {
		return
	}

	user, err := h.userService.UpdateProfile(ctx, userID, params)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to update user profile", slog.String("handler", "UpdateMyProfile"),
			slog.String("kind", string(types.KindOf(err))))
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// ListUsers godoc
// @Summary      List users
// @Description  Pages through all accounts (admin only).
// @Tags         Admin
// @Produce      json
// @Param        skip query int false "Rows to skip" minimum(0)
// @Param        limit query int false "Page size" minimum(1) maximum(1000)
// @Success      200 {array} types.User
// @Failure      400 {object} types.Response "Invalid paging"
// @Failure      403 {object} types.Response "Forbidden"
// @Security     BearerAuth
// @Router       /users [get]
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := types.ListUsersParams{Limit: defaultListLimit}
	for key, dst := range map[string]*int{"skip": &params.Skip, "limit": &params.Limit} {
		raw := strings.TrimSpace(r.URL.Query().Get(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.WriteError(w, r, fmt.Errorf("%w: %s must be an integer", types.ErrInvalidInput, key))
			return
		}
		*dst = n
	}

	users, err := h.userService.ListUsers(ctx, params)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to list users", slog.Any("error", err))
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// GetUser godoc
// @Summary      Get user
// @Description  Retrieves any account by id (admin only).
// @Tags         Admin
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.User
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// UpdateUser godoc
// @Summary      Update user
// @Description  Changes any subset of an account's fields (admin only).
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        user body types.AdminUpdateUserParams true "Fields to change"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response "Invalid input or email already registered"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *HandlerImpl) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	var params types.AdminUpdateUserParams
	if !h.decode(w, r, &params) {
		return
	}

	user, err := h.userService.AdminUpdateUser(ctx, userID, params)
	if err != nil {
		h.logger.WarnContext(ctx, "Admin update failed", slog.String("userID", userID.String()),
			slog.String("kind", string(types.KindOf(err))))
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// ActivateUser godoc
// @Summary      Activate user
// @Tags         Admin
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.User
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id}/activate [post]
func (h *HandlerImpl) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, h.userService.ActivateUser)
}

// DeactivateUser godoc
// @Summary      Deactivate user
// @Description  Soft-deletes the account. Its tokens stop verifying immediately.
// @Tags         Admin
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.User
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id}/deactivate [post]
func (h *HandlerImpl) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, h.userService.DeactivateUser)
}

// VerifyUser godoc
// @Summary      Mark user verified
// @Tags         Admin
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.User
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id}/verify [post]
func (h *HandlerImpl) VerifyUser(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, h.userService.MarkVerified)
}

// ChangeRole godoc
// @Summary      Change user role
// @Description  Sets the role from the JSON body, or from the new_role query parameter when no body is sent.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        role body types.ChangeRoleRequest false "New role"
// @Param        new_role query string false "New role (USER or ADMIN)"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response "Unknown role"
// @Failure      404 {object} types.Response "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id}/change-role [post]
func (h *HandlerImpl) ChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	role := types.Role(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("new_role"))))
	if role == "" {
		var req types.ChangeRoleRequest
		if !h.decode(w, r, &req) {
			return
		}
		role = types.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	}

	user, err := h.userService.ChangeRole(ctx, userID, role)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "User role changed", slog.String("userID", userID.String()), slog.String("role", string(role)))
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

func (h *HandlerImpl) applyAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, userID uuid.UUID) (*types.User, error)) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	user, err := action(r.Context(), userID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}
