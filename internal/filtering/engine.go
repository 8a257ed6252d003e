package filtering

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"tuesdata/internal/dataset"
	"tuesdata/internal/preprocessing"
	"tuesdata/pkg/contracts/domain"
)

// DefaultZThreshold is the z-score magnitude beyond which a value counts as
// an outlier when the caller does not supply one.
const DefaultZThreshold = 3.0

// DateRange is an inclusive interval over the dates column.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Engine is a library of independent transforms over a table. Every method
// treats its input as read-only and returns a new table; referencing a
// column the table does not have is a logged no-op, not an error.
type Engine struct {
	deriver *preprocessing.Deriver
	logger  *slog.Logger
}

// NewEngine creates a filter engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		deriver: preprocessing.NewDeriver(logger),
		logger:  logger.With(slog.String("component", "filter_engine")),
	}
}

// FilterData applies conjunctive equality filters and an optional inclusive
// date range over the dates column. Filter keys naming absent columns are
// skipped.
func (e *Engine) FilterData(ctx context.Context, t *dataset.Table, filters map[string]string, dates *DateRange) *dataset.Table {
	applied := make(map[string]string, len(filters))
	for col, want := range filters {
		if !t.HasColumn(col) {
			e.logger.InfoContext(ctx, "skipping filter on absent column", slog.String("column", col))
			continue
		}
		applied[col] = want
	}
	rangeActive := dates != nil && t.HasColumn(domain.ColDates)
	if dates != nil && !rangeActive {
		e.logger.InfoContext(ctx, "skipping date range, no dates column")
	}

	out := t.Filter(func(r int) bool {
		for col, want := range applied {
			if t.Value(r, col).Display() != want {
				return false
			}
		}
		if rangeActive {
			v := t.Value(r, domain.ColDates)
			if v.Kind != dataset.KindTime {
				return false
			}
			if v.Time.Before(dates.From) || v.Time.After(dates.To) {
				return false
			}
		}
		return true
	})

	e.logger.InfoContext(ctx, "applied equality filters",
		slog.Int("filters", len(applied)),
		slog.Int("rows_in", t.RowCount()),
		slog.Int("rows_out", out.RowCount()))
	return out
}

// RemoveOutliers removes statistical outliers column by column, in the given
// order. Each step recomputes the mean and standard deviation from the rows
// surviving the previous step, so the column order affects the result. Rows
// whose cell has no numeric interpretation are always retained, as is the
// whole table when a column's deviation is zero.
func (e *Engine) RemoveOutliers(ctx context.Context, t *dataset.Table, columns []string, threshold float64) *dataset.Table {
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}
	out := t
	for _, col := range columns {
		if !out.HasColumn(col) {
			e.logger.InfoContext(ctx, "skipping outlier removal on absent column", slog.String("column", col))
			continue
		}
		out = e.removeColumnOutliers(ctx, out, col, threshold)
	}
	return out
}

func (e *Engine) removeColumnOutliers(ctx context.Context, t *dataset.Table, col string, threshold float64) *dataset.Table {
	var sum, sumSq float64
	n := 0
	for r := 0; r < t.RowCount(); r++ {
		if f, ok := t.Value(r, col).AsNumber(); ok {
			sum += f
			sumSq += f * f
			n++
		}
	}
	if n == 0 {
		return t
	}
	mean := sum / float64(n)
	std := math.Sqrt(sumSq/float64(n) - mean*mean)
	if std == 0 {
		return t
	}

	out := t.Filter(func(r int) bool {
		f, ok := t.Value(r, col).AsNumber()
		if !ok {
			return true
		}
		return math.Abs(f-mean)/std <= threshold
	})

	e.logger.InfoContext(ctx, "removed outliers",
		slog.String("column", col),
		slog.Int("removed", t.RowCount()-out.RowCount()))
	return out
}

// CreateFlags recomputes popularity_score and is_popular over the rows
// present in the table, replacing any existing values. A table without the
// play and request value columns passes through unchanged.
func (e *Engine) CreateFlags(ctx context.Context, t *dataset.Table) (*dataset.Table, error) {
	if !t.HasColumn(domain.ColPlayValue) || !t.HasColumn(domain.ColRequestValue) {
		e.logger.WarnContext(ctx, "skipping flag computation, value columns absent")
		return t, nil
	}
	out := t.Clone()
	out.DropColumns(domain.ColPopularity, domain.ColIsPopular)
	if err := e.deriver.DeriveFlags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterPopularSongs keeps popular rows. Without a minimum score the
// dataset-relative is_popular flag decides; an explicit minimum keeps rows
// with popularity_score at or above it. Flags are derived first when the
// table does not carry them.
func (e *Engine) FilterPopularSongs(ctx context.Context, t *dataset.Table, minScore *float64) (*dataset.Table, error) {
	if !t.HasColumn(domain.ColPopularity) {
		var err error
		if t, err = e.CreateFlags(ctx, t); err != nil {
			return nil, err
		}
		if !t.HasColumn(domain.ColPopularity) {
			e.logger.WarnContext(ctx, "skipping popularity filter, flags unavailable")
			return t, nil
		}
	}

	out := t.Filter(func(r int) bool {
		if minScore != nil {
			return t.Value(r, domain.ColPopularity).NumberOrZero() >= *minScore
		}
		return t.Value(r, domain.ColIsPopular) == dataset.String("true")
	})

	e.logger.InfoContext(ctx, "filtered popular songs",
		slog.Bool("explicit_minimum", minScore != nil),
		slog.Int("rows_out", out.RowCount()))
	return out, nil
}

// RemoveNullValues drops rows holding a null in any of the named columns,
// or in any column at all when none are named.
func (e *Engine) RemoveNullValues(ctx context.Context, t *dataset.Table, columns ...string) *dataset.Table {
	cols := columns
	if len(cols) == 0 {
		cols = t.Columns()
	}
	out := t.Filter(func(r int) bool {
		for _, col := range cols {
			if t.HasColumn(col) && t.Value(r, col).IsNull() {
				return false
			}
		}
		return true
	})
	e.logger.InfoContext(ctx, "removed rows with nulls",
		slog.Int("removed", t.RowCount()-out.RowCount()))
	return out
}

// FillMissingValues replaces null cells per the column-to-value map.
func (e *Engine) FillMissingValues(ctx context.Context, t *dataset.Table, fills map[string]string) *dataset.Table {
	out := t.Clone()
	for col, val := range fills {
		if !out.HasColumn(col) {
			e.logger.InfoContext(ctx, "skipping fill on absent column", slog.String("column", col))
			continue
		}
		for r := 0; r < out.RowCount(); r++ {
			if out.Value(r, col).IsNull() {
				out.Set(r, col, dataset.String(val))
			}
		}
	}
	return out
}

// StandardizeTextColumns lowercases and trims the string cells of the named
// columns. Cells of other kinds are untouched.
func (e *Engine) StandardizeTextColumns(ctx context.Context, t *dataset.Table, columns ...string) *dataset.Table {
	out := t.Clone()
	for _, col := range columns {
		if !out.HasColumn(col) {
			e.logger.InfoContext(ctx, "skipping standardization on absent column", slog.String("column", col))
			continue
		}
		for r := 0; r < out.RowCount(); r++ {
			v := out.Value(r, col)
			if v.Kind == dataset.KindString {
				out.Set(r, col, dataset.String(strings.ToLower(strings.TrimSpace(v.Str))))
			}
		}
	}
	return out
}

// RemoveDuplicates drops duplicate rows over the named subset, or exact
// full-row duplicates when none is named. The first occurrence wins.
func (e *Engine) RemoveDuplicates(ctx context.Context, t *dataset.Table, subset ...string) *dataset.Table {
	out := t.Deduplicate(subset...)
	e.logger.InfoContext(ctx, "removed duplicate rows",
		slog.Int("removed", t.RowCount()-out.RowCount()))
	return out
}
