package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"tuesdata/internal/dataset"
	apierrors "tuesdata/internal/errors"
	"tuesdata/internal/loader"
	"tuesdata/internal/services"
)

// TableResponse is the JSON shape all tabular endpoints return. Cells keep
// their scalar type: null, string, number, or an ISO date string.
type TableResponse struct {
	Status  string           `json:"status"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

func newTableResponse(t *dataset.Table) *TableResponse {
	cols := t.Columns()
	rows := make([]map[string]any, 0, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c] = cellJSON(t.Value(i, c))
		}
		rows = append(rows, row)
	}
	return &TableResponse{
		Status:  "success",
		Columns: cols,
		Rows:    rows,
		Count:   len(rows),
	}
}

func cellJSON(v dataset.Value) any {
	switch v.Kind {
	case dataset.KindNumber:
		return v.Num
	case dataset.KindString:
		return v.Str
	case dataset.KindTime:
		return v.Display()
	default:
		return nil
	}
}

// renderError maps service-layer failures to API errors and writes the
// standard envelope.
func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := mapError(err)

	logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.String("path", r.URL.Path))

	render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}

func mapError(err error) *apierrors.APIError {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var missing *loader.MissingColumnsError
	if errors.As(err, &missing) {
		return apierrors.SchemaError(missing.Path, missing.Missing)
	}
	if errors.Is(err, services.ErrNoCombinedData) {
		return apierrors.ErrNoDataLoaded
	}
	return apierrors.NewWithDetails(http.StatusInternalServerError,
		"INTERNAL_SERVER_ERROR", "Internal server error", err.Error())
}
