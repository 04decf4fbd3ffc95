package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pairpad/pairpad/internal/api/auth"
	"github.com/pairpad/pairpad/internal/api/files"
	"github.com/pairpad/pairpad/internal/api/middleware"
	"github.com/pairpad/pairpad/internal/api/presence"
	"github.com/pairpad/pairpad/internal/api/projects"
	"github.com/pairpad/pairpad/internal/api/view"
	"github.com/pairpad/pairpad/pkg/config"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)
	loginLimiter := middleware.NewRateLimiter(s.config.LoginRatePerMin)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public, IP rate-limited)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(s.storage, jwtService)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(loginLimiter))
				r.Post("/login", authHandler.Login)
				r.Post("/register", authHandler.Register)
			})
		})

		// Project directory + per-project stores (protected)
		r.Route("/projects", func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))

			projectHandler := projects.NewHandler(s.storage, s.hub)
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Use(middleware.ProjectAccess(s.storage))

				r.Get("/", projectHandler.Get)
				r.Delete("/", projectHandler.Delete)
				r.Post("/share", projectHandler.Share)
				r.Delete("/share/{username}", projectHandler.Unshare)

				fileHandler := files.NewHandler(s.storage, s.hub, s.config.StreamMaxDuration)
				r.Route("/files", func(r chi.Router) {
					r.Get("/", fileHandler.Snapshot)
					r.Get("/watch", fileHandler.Watch)
					r.Get("/{key}", fileHandler.Get)
					r.Put("/{key}", fileHandler.Put)
					r.Delete("/{key}", fileHandler.Delete)
				})

				presenceHandler := presence.NewHandler(s.storage, s.hub,
					s.config.LivenessWindow, s.config.StreamMaxDuration)
				r.Route("/presence", func(r chi.Router) {
					r.Get("/", presenceHandler.Active)
					r.Get("/watch", presenceHandler.Watch)
					r.Put("/{sessionID}", presenceHandler.Heartbeat)
					r.Delete("/{sessionID}", presenceHandler.Release)
				})
			})
		})
	})

	// Static file gateway (public: serves saved files as a live preview)
	viewHandler := view.NewHandler(s.storage)
	r.Get("/view/{projectID}", viewHandler.Serve)
	r.Get("/view/{projectID}/*", viewHandler.Serve)

	// Health check (public, no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		OK(w, map[string]any{
			"status": "ok",
			"build":  config.GetBuildInfo(),
		})
	})

	return r
}
