package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-authify/internal/api"
	"github.com/FACorreiaa/go-authify/internal/types"
)

// Define typed context keys
type contextKey string

const UserIDKey contextKey = "userID"
const UserRoleKey contextKey = "userRole"
const UserEmailKey contextKey = "userEmail"

// SessionVerifier resolves an access token to the session it represents.
type SessionVerifier interface {
	Verify(ctx context.Context, accessToken string) (*types.SessionInfo, error)
}

// Authenticate is middleware that requires a valid bearer access token and
// puts the session's user id, email and role into the request context.
func Authenticate(logger *slog.Logger, sessions SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString, ok := BearerToken(r)
			if !ok {
				l.WarnContext(ctx, "Missing or malformed Authorization header")
				w.Header().Set("WWW-Authenticate", "Bearer")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			info, err := sessions.Verify(ctx, tokenString)
			if err != nil {
				l.WarnContext(ctx, "Session verification failed", slog.String("kind", string(types.KindOf(err))))
				w.Header().Set("WWW-Authenticate", "Bearer")
				api.ErrorResponse(w, r, api.StatusForError(err), api.MessageForError(err))
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, info.UserID.String())
			ctx = context.WithValue(ctx, UserRoleKey, string(info.Role))
			ctx = context.WithValue(ctx, UserEmailKey, info.Email)
			l.DebugContext(ctx, "Authentication successful", slog.String("userID", info.UserID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	headerParts := strings.Fields(r.Header.Get("Authorization"))
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return "", false
	}
	return headerParts[1], true
}

// Helper functions to get claims from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}

// RequireRole rejects requests whose session role is not one of roles.
// Runs AFTER the Authenticate middleware.
func RequireRole(logger *slog.Logger, roles ...types.Role) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role, ok := GetUserRoleFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "Role missing from context; RequireRole used without Authenticate")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			if _, permitted := allowed[role]; !permitted {
				logger.WarnContext(ctx, "Role check failed", slog.Any("allowed_roles", roles), slog.String("actual_role", role))
				api.ErrorResponse(w, r, http.StatusForbidden, api.MessageForError(types.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
