// Package app wires configuration, services, the operation pipeline and the
// HTTP server into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tuesdata/internal/config"
	"tuesdata/internal/exporter"
	"tuesdata/internal/filtering"
	"tuesdata/internal/infrastructure"
	"tuesdata/internal/loader"
	"tuesdata/internal/operations"
	"tuesdata/internal/services"
	transport "tuesdata/internal/transport/http"
	"tuesdata/internal/websocket"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Application owns the long-lived components of the web server.
type Application struct {
	cfg    *config.Config
	logger *slog.Logger
	otel   *infrastructure.OTelProviders

	hub     *websocket.Hub
	manager *operations.Manager
	server  *transport.Server
}

// New builds a fully wired application from the environment configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize otel: %w", err)
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("initialize paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	l := loader.NewLoader(logger)
	writer := exporter.NewCSVWriter(paths, logger)
	registry, err := operations.NewPipelineRegistry(l, writer, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline registry: %w", err)
	}

	manager := operations.NewManager(registry, operations.NewMetrics(promRegistry), logger)

	hub := websocket.NewHub(logger)
	manager.OnUpdate(hub.BroadcastOperation)

	data := services.NewDataService(l, manager, filtering.NewEngine(logger), writer, paths, logger)
	health := services.NewHealthService(data, Version, logger)

	router := transport.NewRouter(cfg.Server, transport.RouterDeps{
		Data:     data,
		Health:   health,
		Hub:      hub,
		Registry: promRegistry,
		Logger:   logger,
	})

	return &Application{
		cfg:     cfg,
		logger:  logger,
		otel:    otelProviders,
		hub:     hub,
		manager: manager,
		server:  transport.NewServer(cfg.Server, router, logger),
	}, nil
}

// Run starts the application and blocks until a termination signal or a
// server failure. Shutdown drains connections within the configured timeout.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.hub.Start()
	defer a.hub.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("termination signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := a.otel.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("otel shutdown failed", slog.String("error", err.Error()))
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		a.logger.Warn("closing log file failed", slog.String("error", err.Error()))
	}
	return nil
}
