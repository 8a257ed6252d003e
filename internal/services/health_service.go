package services

import (
	"context"
	"log/slog"
	"time"
)

// HealthStatus is the response of the health endpoint.
type HealthStatus struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	DataLoaded bool      `json:"data_loaded"`
	Operations int       `json:"operations"`
	Timestamp  time.Time `json:"timestamp"`
}

// HealthService reports liveness and a coarse view of pipeline state.
type HealthService struct {
	data    *DataService
	version string
	logger  *slog.Logger
}

// NewHealthService creates a health service.
func NewHealthService(data *DataService, version string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		data:    data,
		version: version,
		logger:  logger.With(slog.String("component", "health_service")),
	}
}

// Check returns the current health status. It never fails; degraded states
// surface through the fields.
func (h *HealthService) Check(ctx context.Context) HealthStatus {
	h.data.mu.RLock()
	loaded := h.data.inputs != nil
	h.data.mu.RUnlock()

	return HealthStatus{
		Status:     "ok",
		Version:    h.version,
		DataLoaded: loaded,
		Operations: len(h.data.Operations()),
		Timestamp:  time.Now().UTC(),
	}
}
