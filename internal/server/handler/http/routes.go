package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/middleware"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// NewRouter constructs the API handler.
//
// Routes:
//
//	POST /login            → authHandler.Login
//	GET  /me               → authHandler.Me             (bearer)
//	POST /change-password  → authHandler.ChangePassword (bearer)
//	GET  /admin/users/     → userHandler.List           (bearer, admin)
//	POST /admin/users/     → userHandler.Create         (bearer, admin)
//	GET  /metrics          → Prometheus exposition
func NewRouter(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json"))
		r.Post("/login", authHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(authHandler.AuthService))
		r.Get("/me", authHandler.Me)
		r.With(chiMiddleware.AllowContentType("application/json")).
			Post("/change-password", authHandler.ChangePassword)

		r.Route("/admin/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
		})
	})

	return r
}
