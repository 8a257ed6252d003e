package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "tuesdata/internal/errors"
	"tuesdata/internal/middleware"
	"tuesdata/internal/services"
)

// DataHandler serves the data surface: loading input files, querying and
// filtering the combined dataset, and downloading exported reports.
type DataHandler struct {
	service  *services.DataService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewDataHandler creates a new data handler.
func NewDataHandler(service *services.DataService, logger *slog.Logger) *DataHandler {
	return &DataHandler{
		service:  service,
		logger:   logger.With(slog.String("component", "data_handler")),
		validate: validator.New(),
	}
}

// Routes returns the data routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/load", h.Load)
	r.Post("/query", h.Query)
	r.Post("/filter", h.Filter)

	r.Route("/download/{filename}", func(r chi.Router) {
		r.Use(h.DownloadCtx)
		r.Get("/", h.Download)
	})

	return r
}

// LoadRequest names the three input files to read. Relative paths resolve
// under the configured data directory.
type LoadRequest struct {
	Catalog    string `json:"catalog" validate:"required"`
	PlayLog    string `json:"playlog" validate:"required"`
	RequestLog string `json:"requestlog" validate:"required"`
}

// Load handles POST /api/data/load.
func (h *DataHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, h.logger, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		renderError(w, r, h.logger, apierrors.NewWithDetails(
			http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "loading input tables",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("catalog", req.Catalog),
		slog.String("playlog", req.PlayLog),
		slog.String("requestlog", req.RequestLog))

	result, err := h.service.Load(r.Context(), req.Catalog, req.PlayLog, req.RequestLog)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// Query handles POST /api/data/query.
func (h *DataHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req services.QueryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, h.logger, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		renderError(w, r, h.logger, apierrors.NewWithDetails(
			http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "querying combined dataset",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.Int("columns", len(req.Columns)),
		slog.Int("filters", len(req.Filters)))

	t, err := h.service.Query(r.Context(), req)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, newTableResponse(t))
}

// Filter handles POST /api/data/filter.
func (h *DataHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req services.FilterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, h.logger, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		renderError(w, r, h.logger, apierrors.NewWithDetails(
			http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "filtering combined dataset",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.Int("filters", len(req.Filters)),
		slog.Int("outlier_columns", len(req.OutlierColumns)))

	t, err := h.service.Filter(r.Context(), req)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, newTableResponse(t))
}

// DownloadCtx validates the filename parameter before the download runs.
func (h *DataHandler) DownloadCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" {
			renderError(w, r, h.logger, apierrors.ErrValidation("filename", "Filename is required"))
			return
		}
		if filepath.Ext(filename) != ".csv" {
			renderError(w, r, h.logger, apierrors.ErrValidation("filename", "Only CSV reports can be downloaded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Download handles GET /api/data/download/{filename}.
func (h *DataHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := h.service.ReportPath(filename)
	if err != nil {
		renderError(w, r, h.logger, apierrors.ErrValidation("filename", err.Error()))
		return
	}
	if _, err := os.Stat(path); err != nil {
		renderError(w, r, h.logger, apierrors.NotFoundError(fmt.Sprintf("report %q", filename)))
		return
	}

	h.logger.InfoContext(r.Context(), "serving report download",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("filename", filename))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}
