package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tuesdata/internal/config"
	"tuesdata/internal/middleware"
	"tuesdata/internal/services"
	"tuesdata/internal/websocket"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Data     *services.DataService
	Health   *services.HealthService
	Hub      *websocket.Hub
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// NewRouter assembles the HTTP surface: middleware chain, API handlers,
// Prometheus metrics and the websocket endpoint.
func NewRouter(cfg config.ServerConfig, deps RouterDeps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger).Handler)
	r.Use(middleware.Compress(5))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Mount("/data", NewDataHandler(deps.Data, logger).Routes())
		r.Mount("/operations", NewOperationsHandler(deps.Data, logger).Routes())
		r.Mount("/health", NewHealthHandler(deps.Health, logger).Routes())
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			deps.Registry, promhttp.HandlerOpts{}))
	}

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeWS)
	}

	return r
}
