package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "tuesdata/internal/errors"
	"tuesdata/internal/middleware"
	"tuesdata/internal/services"
)

// OperationsHandler exposes the preprocessing pipeline: starting runs and
// observing their step-by-step progress.
type OperationsHandler struct {
	service *services.DataService
	logger  *slog.Logger
}

// NewOperationsHandler creates a new operations handler.
func NewOperationsHandler(service *services.DataService, logger *slog.Logger) *OperationsHandler {
	return &OperationsHandler{
		service: service,
		logger:  logger.With(slog.String("component", "operations_handler")),
	}
}

// Routes returns the operations routes.
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/preprocess", h.Preprocess)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	return r
}

// Preprocess handles POST /api/operations/preprocess. The run is
// asynchronous; progress arrives over the websocket feed and through
// GET /api/operations/{id}.
func (h *OperationsHandler) Preprocess(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.Preprocess(r.Context())
	if err != nil {
		renderError(w, r, h.logger, apierrors.NewWithDetails(
			http.StatusConflict, "NO_DATA_LOADED",
			"Input tables must be loaded before preprocessing", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "preprocessing started",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("operation_id", id))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"status":       "success",
		"operation_id": id,
	})
}

// Get handles GET /api/operations/{id}.
func (h *OperationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snapshot, ok := h.service.Operation(id)
	if !ok {
		renderError(w, r, h.logger, apierrors.ErrOperationNotFound)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snapshot,
	})
}

// List handles GET /api/operations/.
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshots := h.service.Operations()

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snapshots,
		"count":  len(snapshots),
	})
}
