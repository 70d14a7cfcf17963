package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/travel-agent/app"
	"github.com/upb/travel-agent/handlers"
	"github.com/upb/travel-agent/middleware"
	"github.com/upb/travel-agent/utils"
)

// handlerTimeoutMargin lets the query service hit its own deadline first,
// so clients get a JSON error body instead of chi's empty 504.
const handlerTimeoutMargin = 5 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	var httpMetrics middleware.HTTPRecorder
	if deps.Metrics != nil {
		httpMetrics = deps.Metrics
	}

	timeout := 60 * time.Second
	if deps.Config.Server.RequestTimeout > 0 {
		timeout = deps.Config.Server.RequestTimeout + handlerTimeoutMargin
	}

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Observe(deps.Logger, httpMetrics))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, handlers.RunIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: deps.Config.CORS.AllowCredentials,
		MaxAge:           300,
	}))

	// Health check endpoints
	health := handlers.NewDependencyHealthHandler(deps)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	queryHandler := handlers.NewQueryHandler(deps.QueryService, deps.Logger)

	// Agent endpoints, rate limited per client IP
	r.Group(func(r chi.Router) {
		if deps.RateLimitMiddleware != nil {
			r.Use(deps.RateLimitMiddleware.Limit)
		}
		r.Post("/query", queryHandler.HandleQuery)
		r.Get("/api/v1/search/{category}", queryHandler.HandleSearch)
	})

	r.Get("/api/v1/status", handlers.StatusHandler(deps))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
