package preprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

// Preprocessor runs the full cleaning and merging pipeline over the three
// input tables and produces the combined analysis dataset.
type Preprocessor struct {
	cleaner  *Cleaner
	reshaper *Reshaper
	merger   *Merger
	deriver  *Deriver
	logger   *slog.Logger
}

// NewPreprocessor creates a preprocessor with all pipeline components
// sharing the given logger.
func NewPreprocessor(logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		cleaner:  NewCleaner(logger),
		reshaper: NewReshaper(logger),
		merger:   NewMerger(logger),
		deriver:  NewDeriver(logger),
		logger:   logger.With(slog.String("component", "preprocessor")),
	}
}

// Cleaner returns the pipeline's cleaner for standalone use.
func (p *Preprocessor) Cleaner() *Cleaner { return p.cleaner }

// Result holds the intermediate and final tables of one pipeline run.
type Result struct {
	Catalog      *dataset.Table
	PlayLong     *dataset.Table
	RequestLong  *dataset.Table
	Combined     *dataset.Table
	CombinedFull *dataset.Table
}

// Run executes clean, reshape, merge, catalog join, decade derivation, a
// final clean and flag derivation. Result.Combined is the merged event
// table before catalog enrichment; Result.CombinedFull is the exported
// combined dataset.
func (p *Preprocessor) Run(ctx context.Context, catalog, plays, requests *dataset.Table) (*Result, error) {
	res := &Result{}

	res.Catalog = p.cleaner.Clean(ctx, catalog)
	cleanPlays := p.cleaner.Clean(ctx, plays)
	cleanRequests := p.cleaner.Clean(ctx, requests)

	var err error
	res.PlayLong, err = p.reshaper.Reshape(ctx, cleanPlays, domain.ColPlayValue)
	if err != nil {
		return nil, fmt.Errorf("reshape play log: %w", err)
	}
	res.RequestLong, err = p.reshaper.Reshape(ctx, cleanRequests, domain.ColRequestValue)
	if err != nil {
		return nil, fmt.Errorf("reshape request log: %w", err)
	}

	res.Combined, err = p.merger.MergeEvents(ctx, res.PlayLong, res.RequestLong)
	if err != nil {
		return nil, fmt.Errorf("merge event tables: %w", err)
	}

	joined, err := p.merger.JoinCatalog(ctx, res.Combined, res.Catalog)
	if err != nil {
		return nil, fmt.Errorf("join catalog: %w", err)
	}
	p.merger.DeriveDecade(ctx, joined)

	combined := p.cleaner.Clean(ctx, joined)
	if err := p.deriver.DeriveFlags(ctx, combined); err != nil {
		return nil, fmt.Errorf("derive flags: %w", err)
	}
	res.CombinedFull = combined

	p.logger.InfoContext(ctx, "preprocessing complete",
		slog.Int("combined_rows", res.CombinedFull.RowCount()),
		slog.Int("combined_columns", res.CombinedFull.Width()))
	return res, nil
}
