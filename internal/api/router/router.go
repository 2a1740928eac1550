package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pafrisco/clinic-booking/internal/directory"
	"github.com/pafrisco/clinic-booking/internal/http/handlers"
	httpmiddleware "github.com/pafrisco/clinic-booking/internal/http/middleware"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	Directory           *directory.Directory
	ProviderHandler     *handlers.ProviderHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	OrdersHandler       *handlers.OrdersHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	// RateLimiter guards the /api routes when set.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		if cfg.Directory != nil {
			public.Get("/health", handlers.Health(cfg.Directory))
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}
		if cfg.ProviderHandler != nil {
			api.Get("/providers", cfg.ProviderHandler.ListProviders)
			api.Post("/login", cfg.ProviderHandler.Login)
		}
		if cfg.AppointmentsHandler != nil {
			api.Post("/sandbox-booking", cfg.AppointmentsHandler.SandboxBooking)
			api.Get("/appointments/{username}", cfg.AppointmentsHandler.ListAppointments)
			api.Post("/appointments", cfg.AppointmentsHandler.StoreAppointment)
		}
		if cfg.OrdersHandler != nil {
			api.Post("/order/sample", cfg.OrdersHandler.SampleOrder)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
