package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/storeforge/access-plane/app"
	"github.com/storeforge/access-plane/authz"
	appmw "github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(requestIDBridge)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/health", deps.HealthHandler.HandleHealth)
	r.Get("/health/ready", deps.HealthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Session endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", deps.AuthHandler.HandleLogin)
			r.With(deps.AuthMiddleware.OptionalAuth).Post("/logout", deps.AuthHandler.HandleLogout)
			r.With(deps.AuthMiddleware.RequireAuth).Get("/me", deps.AuthHandler.HandleMe)
		})

		// Permission resolution surface
		r.Route("/access", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/check", deps.AccessHandler.HandleCheck)
			r.Get("/permissions", deps.AccessHandler.HandlePermissions)
			r.With(deps.Guard.Require(authz.PermSettingsEdit)).
				Get("/cache/stats", deps.AccessHandler.HandleCacheStats)
		})

		// User and grant management
		r.Route("/users", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/me", deps.AuthHandler.HandleMe)

			r.Group(func(r chi.Router) {
				r.Use(deps.Guard.Require(authz.PermUsersManage))
				r.Get("/", deps.UserHandler.HandleList)
				r.Post("/", deps.UserHandler.HandleCreate)
				r.Get("/{userID}", deps.UserHandler.HandleGet)
				r.Put("/{userID}", deps.UserHandler.HandleUpdate)
				r.Delete("/{userID}", deps.UserHandler.HandleDelete)

				r.Get("/{userID}/grants", deps.GrantHandler.HandleList)
				r.Post("/{userID}/grants", deps.GrantHandler.HandleAdd)
				r.Delete("/{userID}/grants/{permission}", deps.GrantHandler.HandleRevoke)
			})
		})

		// Store management
		r.Route("/stores", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.Guard.Require(authz.PermSettingsEdit))
			r.Get("/", deps.StoreHandler.HandleList)
			r.Post("/", deps.StoreHandler.HandleCreate)
			r.Get("/{storeID}", deps.StoreHandler.HandleGet)
			r.Put("/{storeID}", deps.StoreHandler.HandleUpdate)
			r.Delete("/{storeID}", deps.StoreHandler.HandleDelete)
		})

		// Decision audit trail
		r.Route("/audit-logs", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.Guard.RequireAny(authz.PermReportsView, authz.PermSettingsEdit))
			r.Get("/", deps.AuditHandler.HandleList)
			r.Get("/{logID}", deps.AuditHandler.HandleGet)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})

	return r
}

// requestIDBridge copies chi's request ID into the application context so
// handlers and guards log a consistent request_id.
func requestIDBridge(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
			ctx = appmw.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
