package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/go-authify/docs"

	appLogger "github.com/FACorreiaa/go-authify/app/logger"
	"github.com/FACorreiaa/go-authify/internal/api"
	"github.com/FACorreiaa/go-authify/internal/api/auth"
	"github.com/FACorreiaa/go-authify/internal/api/user"
	"github.com/FACorreiaa/go-authify/internal/types"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ServiceName string
	Logger      *slog.Logger
	CORSOrigins []string
	Timeout     time.Duration

	AuthHandler *auth.AuthHandler
	UserHandler user.Handler
	Sessions    auth.SessionVerifier

	// RateLimit wraps the unauthenticated auth endpoints. Nil disables it.
	RateLimit func(http.Handler) http.Handler
}

// SetupRouter builds the complete HTTP surface: server-wide middleware,
// health and docs, and the versioned API.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": cfg.ServiceName,
		})
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	limit := cfg.RateLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	authenticate := auth.Authenticate(cfg.Logger, cfg.Sessions)

	r.Route("/api/v1", func(r chi.Router) {
		// --- Public Auth Routes ---
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)
			r.Post("/auth/verify-token", cfg.AuthHandler.VerifyToken)
			r.Get("/auth/{provider}", cfg.AuthHandler.ProviderLogin)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.ProviderCallback)
			r.Post("/auth/{provider}/token", cfg.AuthHandler.ProviderToken)
		})

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/auth/me", cfg.AuthHandler.Me)
			r.Get("/users/me", cfg.UserHandler.GetMyProfile)
			r.Put("/users/me", cfg.UserHandler.UpdateMyProfile)

			// --- Admin Routes ---
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(cfg.Logger, types.RoleAdmin))
				r.Get("/users", cfg.UserHandler.ListUsers)
				r.Get("/users/{id}", cfg.UserHandler.GetUser)
				r.Put("/users/{id}", cfg.UserHandler.UpdateUser)
				r.Post("/users/{id}/activate", cfg.UserHandler.ActivateUser)
				r.Post("/users/{id}/deactivate", cfg.UserHandler.DeactivateUser)
				r.Post("/users/{id}/change-role", cfg.UserHandler.ChangeRole)
				r.Post("/users/{id}/verify", cfg.UserHandler.VerifyUser)
			})
		})
	})

	return r
}
