package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/pkg/health"
	"github.com/anuragpardeshii/MediCare/pkg/middleware"
	"github.com/anuragpardeshii/MediCare/pkg/ratelimit"
)

// RouterConfig carries everything NewRouter mounts. Metrics, Health and
// AuthLimiter are optional.
type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Appointments *AppointmentHandler

	Sessions SessionResolver
	Cookie   *auth.SessionCookie

	Health      *health.Handler
	Metrics     *middleware.HTTPMetrics
	AuthLimiter ratelimit.Limiter
	CORS        middleware.CORSConfig
	PprofCIDRs  []string

	// TrustedProxies may report the client address in forwarding headers.
	// Nil keys the auth limiter on the remote address alone.
	TrustedProxies *ratelimit.TrustedProxies

	Logger *slog.Logger
}

// NewRouter creates a chi router with all routes and middleware configured.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	l := cfg.Logger

	// Global middleware.
	r.Use(middleware.RequestLogging(l))
	r.Use(middleware.Recovery(l))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(l))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.CORS(cfg.CORS))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.LivenessHandler())
		r.Get("/health/ready", cfg.Health.ReadinessHandler())
	}
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, l)

	r.Route("/api", func(r chi.Router) {
		r.Use(Session(cfg.Sessions, cfg.Cookie, l))

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Group(func(r chi.Router) {
				if cfg.AuthLimiter != nil {
					r.Use(ratelimit.Middleware(cfg.AuthLimiter, ratelimit.ByIP("auth", cfg.TrustedProxies), l))
				}
				r.Use(ContentTypeJSON)
				r.Post("/register", cfg.Auth.Register)
				r.Post("/login", cfg.Auth.Login)
			})
			r.Get("/checkauth", cfg.Auth.CheckAuth)
			r.Post("/logout", cfg.Auth.Logout)
			r.With(RequireSession).Get("/me", cfg.Auth.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(RequireSession)
			r.With(RequireRole(domain.RoleDoctor)).Get("/", cfg.Users.List)
			r.Get("/doctor", cfg.Users.ListDoctors)
			r.With(RequireRole(domain.RoleDoctor)).Get("/patient", cfg.Users.ListPatients)
			r.Get("/{id}", cfg.Users.Get)
			r.With(RequireRole(domain.RoleDoctor)).Delete("/{id}", cfg.Users.Delete)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Use(RequireSession)
			r.With(ContentTypeJSON).Post("/", cfg.Appointments.Create)
			r.With(RequireRole(domain.RoleDoctor)).Get("/", cfg.Appointments.ListAll)
			r.Get("/me", cfg.Appointments.ListMine)
			r.Get("/patient/{userId}", cfg.Appointments.ListByPatient)
			r.Delete("/{id}", cfg.Appointments.Cancel)
		})
	})

	return r
}
