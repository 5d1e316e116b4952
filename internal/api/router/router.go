package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/prescription-ai-portal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/prescription-ai-portal/internal/http/middleware"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Sessions           httpmiddleware.SessionRegistry
	SessionCookie      httpmiddleware.SessionCookieConfig
	Health             *handlers.HealthHandler
	Auth               *handlers.AuthHandler
	Notifications      *handlers.NotificationsHandler
	Portal             *handlers.PortalHandler
	Stream             *handlers.StreamHandler
	AuthRateLimiter    *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Health.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.Sessions == nil {
		return r
	}

	// Everything under /api is bound to a browser session by cookie.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.SessionCookie(cfg.Sessions, cfg.SessionCookie, cfg.Logger))

		if cfg.Stream != nil {
			api.Get("/session/stream", cfg.Stream.HandleWebSocket)
		}

		api.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			if cfg.Auth != nil {
				r.Get("/session", cfg.Auth.Session)
				r.Route("/auth", func(auth chi.Router) {
					if cfg.AuthRateLimiter != nil {
						auth.Use(cfg.AuthRateLimiter.Middleware)
					}
					auth.Post("/signup", cfg.Auth.Signup)
					auth.Post("/login", cfg.Auth.Login)
					auth.Post("/logout", cfg.Auth.Logout)
				})
			}
			if cfg.Notifications != nil {
				r.Get("/notifications", cfg.Notifications.Drain)
			}
			if cfg.Portal != nil {
				r.Get("/dashboard", cfg.Portal.GetDashboard)
				r.Get("/medications", cfg.Portal.GetMedications)
				r.Get("/appointments", cfg.Portal.GetAppointments)
				r.Route("/doctors", func(doctors chi.Router) {
					doctors.Get("/", cfg.Portal.GetDoctors)
					doctors.Get("/{doctorID}", cfg.Portal.GetDoctor)
				})
			}
		})
	})

	return r
}
