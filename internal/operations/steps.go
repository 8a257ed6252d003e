package operations

import (
	"context"
	"fmt"
	"log/slog"

	"tuesdata/internal/exporter"
	"tuesdata/internal/loader"
	"tuesdata/internal/preprocessing"
	"tuesdata/pkg/contracts/domain"
)

// NewPipelineRegistry wires the six steps of the standard preprocessing
// pipeline in execution order.
func NewPipelineRegistry(l *loader.Loader, w *exporter.CSVWriter, logger *slog.Logger) (*Registry, error) {
	cleaner := preprocessing.NewCleaner(logger)
	registry := NewRegistry()
	steps := []Step{
		NewLoadStep(l),
		NewCleanStep(cleaner),
		NewReshapeStep(preprocessing.NewReshaper(logger)),
		NewMergeStep(preprocessing.NewMerger(logger)),
		NewDeriveStep(cleaner, preprocessing.NewDeriver(logger)),
		NewExportStep(w, logger),
	}
	for _, s := range steps {
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Step IDs of the fixed preprocessing pipeline, in execution order.
const (
	StepIDLoad    = "load"
	StepIDClean   = "clean"
	StepIDReshape = "reshape"
	StepIDMerge   = "merge"
	StepIDDerive  = "derive"
	StepIDExport  = "export"
)

// LoadStep reads the three input files into raw tables. It is skipped when
// the tables were injected up front, which is how the in-memory service
// reuses already-loaded data.
type LoadStep struct {
	BaseStep
	loader *loader.Loader
}

// NewLoadStep creates the load step.
func NewLoadStep(l *loader.Loader) *LoadStep {
	return &LoadStep{BaseStep: NewBaseStep(StepIDLoad, "Load input files"), loader: l}
}

// Validate requires either preloaded tables or a complete path set.
func (s *LoadStep) Validate(state *OperationState) error {
	if state.Tables.Catalog != nil && state.Tables.PlayLog != nil && state.Tables.RequestLog != nil {
		return nil
	}
	req := state.Request()
	if req.CatalogPath == "" || req.PlayLogPath == "" || req.RequestLogPath == "" {
		return fmt.Errorf("load step needs either preloaded tables or all three input paths")
	}
	return nil
}

func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	if state.Tables.Catalog != nil && state.Tables.PlayLog != nil && state.Tables.RequestLog != nil {
		if ss, ok := state.StepState(StepIDLoad); ok {
			ss.Skip("tables already loaded")
		}
		return nil
	}
	req := state.Request()
	in, err := s.loader.LoadAll(ctx, req.CatalogPath, req.PlayLogPath, req.RequestLogPath)
	if err != nil {
		return err
	}
	state.Tables.Catalog = in.Catalog
	state.Tables.PlayLog = in.PlayLog
	state.Tables.RequestLog = in.RequestLog
	return nil
}

// CleanStep normalizes the three raw tables.
type CleanStep struct {
	BaseStep
	cleaner *preprocessing.Cleaner
}

// NewCleanStep creates the clean step.
func NewCleanStep(c *preprocessing.Cleaner) *CleanStep {
	return &CleanStep{BaseStep: NewBaseStep(StepIDClean, "Clean input tables"), cleaner: c}
}

func (s *CleanStep) Validate(state *OperationState) error {
	if state.Tables.Catalog == nil || state.Tables.PlayLog == nil || state.Tables.RequestLog == nil {
		return fmt.Errorf("clean step needs the three loaded tables")
	}
	return nil
}

func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	state.Tables.CleanCatalog = s.cleaner.Clean(ctx, state.Tables.Catalog)
	state.Tables.CleanPlayLog = s.cleaner.Clean(ctx, state.Tables.PlayLog)
	state.Tables.CleanRequestLog = s.cleaner.Clean(ctx, state.Tables.RequestLog)
	return nil
}

// ReshapeStep melts the two cleaned event logs into long tables.
type ReshapeStep struct {
	BaseStep
	reshaper *preprocessing.Reshaper
}

// NewReshapeStep creates the reshape step.
func NewReshapeStep(r *preprocessing.Reshaper) *ReshapeStep {
	return &ReshapeStep{BaseStep: NewBaseStep(StepIDReshape, "Reshape event logs"), reshaper: r}
}

func (s *ReshapeStep) Validate(state *OperationState) error {
	if state.Tables.CleanPlayLog == nil || state.Tables.CleanRequestLog == nil {
		return fmt.Errorf("reshape step needs cleaned event logs")
	}
	return nil
}

func (s *ReshapeStep) Execute(ctx context.Context, state *OperationState) error {
	var err error
	state.Tables.PlayLong, err = s.reshaper.Reshape(ctx, state.Tables.CleanPlayLog, domain.ColPlayValue)
	if err != nil {
		return fmt.Errorf("reshape play log: %w", err)
	}
	state.Tables.RequestLong, err = s.reshaper.Reshape(ctx, state.Tables.CleanRequestLog, domain.ColRequestValue)
	if err != nil {
		return fmt.Errorf("reshape request log: %w", err)
	}
	return nil
}

// MergeStep combines the long tables, joins catalog attributes and derives
// the decade.
type MergeStep struct {
	BaseStep
	merger *preprocessing.Merger
}

// NewMergeStep creates the merge step.
func NewMergeStep(m *preprocessing.Merger) *MergeStep {
	return &MergeStep{BaseStep: NewBaseStep(StepIDMerge, "Merge and enrich"), merger: m}
}

func (s *MergeStep) Validate(state *OperationState) error {
	if state.Tables.PlayLong == nil || state.Tables.RequestLong == nil || state.Tables.CleanCatalog == nil {
		return fmt.Errorf("merge step needs the long tables and the cleaned catalog")
	}
	return nil
}

func (s *MergeStep) Execute(ctx context.Context, state *OperationState) error {
	events, err := s.merger.MergeEvents(ctx, state.Tables.PlayLong, state.Tables.RequestLong)
	if err != nil {
		return err
	}
	merged, err := s.merger.JoinCatalog(ctx, events, state.Tables.CleanCatalog)
	if err != nil {
		return err
	}
	s.merger.DeriveDecade(ctx, merged)
	state.Tables.Merged = merged
	return nil
}

// DeriveStep re-cleans the merged table and computes the popularity fields.
type DeriveStep struct {
	BaseStep
	cleaner *preprocessing.Cleaner
	deriver *preprocessing.Deriver
}

// NewDeriveStep creates the derive step.
func NewDeriveStep(c *preprocessing.Cleaner, d *preprocessing.Deriver) *DeriveStep {
	return &DeriveStep{BaseStep: NewBaseStep(StepIDDerive, "Derive popularity"), cleaner: c, deriver: d}
}

func (s *DeriveStep) Validate(state *OperationState) error {
	if state.Tables.Merged == nil {
		return fmt.Errorf("derive step needs the merged table")
	}
	return nil
}

func (s *DeriveStep) Execute(ctx context.Context, state *OperationState) error {
	combined := s.cleaner.Clean(ctx, state.Tables.Merged)
	if err := s.deriver.DeriveFlags(ctx, combined); err != nil {
		return err
	}
	state.Tables.Combined = combined
	return nil
}

// ExportStep writes the combined dataset to the report files.
type ExportStep struct {
	BaseStep
	writer *exporter.CSVWriter
	logger *slog.Logger
}

// NewExportStep creates the export step.
func NewExportStep(w *exporter.CSVWriter, logger *slog.Logger) *ExportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, "Export combined dataset"),
		writer:   w,
		logger:   logger.With(slog.String("component", "export_step")),
	}
}

func (s *ExportStep) Validate(state *OperationState) error {
	if state.Tables.Combined == nil {
		return fmt.Errorf("export step needs the combined table")
	}
	return nil
}

func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	files, err := s.writer.WriteCombined(state.Tables.Combined)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "exported combined dataset",
		slog.Any("files", files),
		slog.Int("rows", state.Tables.Combined.RowCount()))
	return nil
}
