package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupFrontendRoutes registers the landing page reads, the session endpoints and, behind
// authentication, the admin panel writes
func setupFrontendRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware, limiter *loginLimiter) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", handlers.projectHandler.getAllProjects())
		r.Get("/projects/{projectID}", handlers.projectHandler.getProject())
		r.Get("/catalog", handlers.projectHandler.getCatalog())
		r.Get("/storage/status", handlers.siteHandler.getStorageStatus())

		r.With(limiter.middleware).Post("/auth/login", handlers.authHandler.login())
		r.Post("/auth/logout", handlers.authHandler.logout())
		r.Get("/auth/session", handlers.authHandler.session())

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.authenticate)

			r.Post("/projects", handlers.projectHandler.createProject())
			r.Post("/projects/reset", handlers.projectHandler.resetProjects())
			r.Put("/projects/{projectID}", handlers.projectHandler.updateProject())
			r.Delete("/projects/{projectID}", handlers.projectHandler.deleteProject())

			r.Post("/images", handlers.siteHandler.uploadImage())
		})
	})
}

// setupPublicRoutes registers health, sitemap and metrics outside /api
func setupPublicRoutes(r chi.Router, handlers *routeHandlers, metricsHandler http.Handler) {
	r.Get("/healthz", handlers.siteHandler.healthCheck())
	r.Get("/sitemap.xml", handlers.siteHandler.getSitemap())
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
}
