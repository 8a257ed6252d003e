package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"tuesdata/internal/config"
	"tuesdata/internal/dataset"
	"tuesdata/internal/exporter"
	"tuesdata/internal/filtering"
	"tuesdata/internal/loader"
	"tuesdata/internal/operations"
)

// ErrNoCombinedData is returned when a query arrives before any
// preprocessing operation has completed.
var ErrNoCombinedData = fmt.Errorf("no combined dataset available, run preprocessing first")

// DataService owns the loaded input tables and the combined dataset, and
// fronts the operation manager and the filter engine for the HTTP layer.
type DataService struct {
	loader  *loader.Loader
	manager *operations.Manager
	engine  *filtering.Engine
	writer  *exporter.CSVWriter
	paths   *config.Paths
	logger  *slog.Logger

	mu       sync.RWMutex
	inputs   *loader.Inputs
	lastOpID string
}

// NewDataService creates a data service.
func NewDataService(l *loader.Loader, m *operations.Manager, e *filtering.Engine, w *exporter.CSVWriter, paths *config.Paths, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		loader:  l,
		manager: m,
		engine:  e,
		writer:  w,
		paths:   paths,
		logger:  logger.With(slog.String("component", "data_service")),
	}
}

// LoadResult reports what one load brought in.
type LoadResult struct {
	CatalogRows    int `json:"catalog_rows"`
	PlayLogRows    int `json:"playlog_rows"`
	RequestLogRows int `json:"requestlog_rows"`
}

// Load reads the three input files and keeps the raw tables in memory for
// subsequent preprocessing runs. Relative paths resolve under the data
// directory.
func (s *DataService) Load(ctx context.Context, catalogPath, playPath, requestPath string) (*LoadResult, error) {
	in, err := s.loader.LoadAll(ctx,
		s.resolve(catalogPath), s.resolve(playPath), s.resolve(requestPath))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.inputs = in
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "input tables loaded",
		slog.Int("catalog_rows", in.Catalog.RowCount()),
		slog.Int("playlog_rows", in.PlayLog.RowCount()),
		slog.Int("requestlog_rows", in.RequestLog.RowCount()))

	return &LoadResult{
		CatalogRows:    in.Catalog.RowCount(),
		PlayLogRows:    in.PlayLog.RowCount(),
		RequestLogRows: in.RequestLog.RowCount(),
	}, nil
}

// Preprocess starts an asynchronous preprocessing operation over the loaded
// tables and returns its ID. Progress is observable through Operation and
// the websocket feed.
func (s *DataService) Preprocess(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputs == nil {
		return "", fmt.Errorf("no input tables loaded")
	}

	state := s.manager.Start(operations.Request{})
	state.Tables.Catalog = s.inputs.Catalog
	state.Tables.PlayLog = s.inputs.PlayLog
	state.Tables.RequestLog = s.inputs.RequestLog
	s.lastOpID = state.ID()

	// detach from the request context so the run survives the response
	s.manager.RunAsync(context.WithoutCancel(ctx), state)
	return state.ID(), nil
}

// Operation returns the snapshot of an operation by ID.
func (s *DataService) Operation(id string) (operations.Snapshot, bool) {
	state, ok := s.manager.Get(id)
	if !ok {
		return operations.Snapshot{}, false
	}
	return state.Snapshot(), true
}

// Operations lists all known operations.
func (s *DataService) Operations() []operations.Snapshot {
	return s.manager.List()
}

// Combined returns the combined table of the most recent completed
// preprocessing run.
func (s *DataService) Combined() (*dataset.Table, error) {
	s.mu.RLock()
	id := s.lastOpID
	s.mu.RUnlock()

	if id == "" {
		return nil, ErrNoCombinedData
	}
	state, ok := s.manager.Get(id)
	if !ok || state.Status() != operations.OperationStatusCompleted || state.Tables.Combined == nil {
		return nil, ErrNoCombinedData
	}
	return state.Tables.Combined, nil
}

// QueryRequest selects columns and narrows rows of the combined dataset.
// SaveAs optionally writes the result to the reports directory.
type QueryRequest struct {
	Columns  []string          `json:"columns"`
	Filters  map[string]string `json:"filters"`
	DateFrom string            `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string            `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	SaveAs   string            `json:"save_as" validate:"omitempty,endswith=.csv"`
}

// Query filters the combined dataset and derives play counts.
func (s *DataService) Query(ctx context.Context, req QueryRequest) (*dataset.Table, error) {
	combined, err := s.Combined()
	if err != nil {
		return nil, err
	}

	dates, err := parseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		return nil, err
	}

	t := combined
	if len(req.Filters) > 0 || dates != nil {
		t = s.engine.FilterData(ctx, t, req.Filters, dates)
	}
	result, err := s.engine.Query(ctx, t, req.Columns)
	if err != nil {
		return nil, err
	}

	if req.SaveAs != "" {
		name := req.SaveAs
		if name != filepath.Base(name) {
			return nil, fmt.Errorf("invalid report name %q", name)
		}
		if err := s.writer.WriteTable(name, result); err != nil {
			return nil, fmt.Errorf("save query result: %w", err)
		}
		s.logger.InfoContext(ctx, "query result saved",
			slog.String("report", name), slog.Int("rows", result.RowCount()))
	}
	return result, nil
}

// FilterRequest applies the filter engine's transforms to the combined
// dataset. Transforms run in the fixed order the fields are declared in.
type FilterRequest struct {
	Filters            map[string]string `json:"filters"`
	DateFrom           string            `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo             string            `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	OutlierColumns     []string          `json:"outlier_columns"`
	ZThreshold         float64           `json:"z_threshold" validate:"omitempty,gt=0"`
	RemoveNullColumns  []string          `json:"remove_null_columns"`
	RemoveNulls        bool              `json:"remove_nulls"`
	FillValues         map[string]string `json:"fill_values"`
	StandardizeColumns []string          `json:"standardize_columns"`
	PopularOnly        bool              `json:"popular_only"`
	MinScore           *float64          `json:"min_score"`
	DeduplicateSubset  []string          `json:"deduplicate_subset"`
	Deduplicate        bool              `json:"deduplicate"`
}

// Filter runs the requested transforms over the combined dataset.
func (s *DataService) Filter(ctx context.Context, req FilterRequest) (*dataset.Table, error) {
	t, err := s.Combined()
	if err != nil {
		return nil, err
	}

	dates, err := parseDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		return nil, err
	}

	if len(req.Filters) > 0 || dates != nil {
		t = s.engine.FilterData(ctx, t, req.Filters, dates)
	}
	if len(req.OutlierColumns) > 0 {
		t = s.engine.RemoveOutliers(ctx, t, req.OutlierColumns, req.ZThreshold)
	}
	if req.RemoveNulls || len(req.RemoveNullColumns) > 0 {
		t = s.engine.RemoveNullValues(ctx, t, req.RemoveNullColumns...)
	}
	if len(req.FillValues) > 0 {
		t = s.engine.FillMissingValues(ctx, t, req.FillValues)
	}
	if len(req.StandardizeColumns) > 0 {
		t = s.engine.StandardizeTextColumns(ctx, t, req.StandardizeColumns...)
	}
	if req.PopularOnly || req.MinScore != nil {
		if t, err = s.engine.FilterPopularSongs(ctx, t, req.MinScore); err != nil {
			return nil, err
		}
	}
	if req.Deduplicate || len(req.DeduplicateSubset) > 0 {
		t = s.engine.RemoveDuplicates(ctx, t, req.DeduplicateSubset...)
	}
	return t, nil
}

// ReportPath resolves an exported report file name, rejecting paths that
// escape the reports directory.
func (s *DataService) ReportPath(name string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	return s.paths.ReportPath(name), nil
}

func (s *DataService) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return s.paths.DataPath(path)
}

func parseDateRange(from, to string) (*filtering.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	r := &filtering.DateRange{
		From: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	var err error
	if from != "" {
		if r.From, err = time.Parse("2006-01-02", from); err != nil {
			return nil, fmt.Errorf("invalid date_from: %w", err)
		}
	}
	if to != "" {
		if r.To, err = time.Parse("2006-01-02", to); err != nil {
			return nil, fmt.Errorf("invalid date_to: %w", err)
		}
	}
	return r, nil
}
