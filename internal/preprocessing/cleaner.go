package preprocessing

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

// Date formats accepted by the cleaner. Event-date column names and legacy
// date cells use the compact form; the combined dates column round-trips
// through the ISO form.
const (
	CompactDateFormat = "20060102"
	ISODateFormat     = "2006-01-02"
)

// legacyRenames maps legacy column names to canonical ones. Absent columns
// are silently skipped.
var legacyRenames = map[string]string{
	"request_value": domain.ColRequestedBy,
	"date":          domain.ColFirstPlayDate,
	"gender":        domain.ColPerformerType,
}

// categoricalColumns are normalized through the fixed code mapping.
var categoricalColumns = []string{
	domain.ColRequestedBy,
	domain.ColAudienceType,
	domain.ColType,
}

// Cleaner normalizes a single table: renames, categorical normalization,
// date parsing, numeric coercion, rating clipping, multi-value explosion,
// deduplication and sentinel fill. Clean is idempotent: applying it to its
// own output produces no further change.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A nil logger falls back to slog.Default.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger.With(slog.String("component", "cleaner"))}
}

// Clean produces a cleaned copy of the input table. The input is never
// mutated.
func (c *Cleaner) Clean(ctx context.Context, in *dataset.Table) *dataset.Table {
	t := in.Clone()

	for from, to := range legacyRenames {
		if t.Rename(from, to) {
			c.logger.InfoContext(ctx, "renamed legacy column",
				slog.String("from", from), slog.String("to", to))
		}
	}

	t.DropColumns(domain.PassthroughColumns...)

	for _, col := range categoricalColumns {
		c.normalizeColumn(ctx, t, col)
	}
	c.normalizeEventColumns(ctx, t)

	t = c.parseDateColumn(ctx, t, domain.ColFirstPlayDate, []string{CompactDateFormat, ISODateFormat})
	t = c.parseDateColumn(ctx, t, domain.ColDates, []string{ISODateFormat, CompactDateFormat})

	c.coerceNumericColumns(ctx, t)
	c.clipDifficulty(ctx, t)

	for _, col := range domain.MultiValueColumns {
		t = c.explodeColumn(ctx, t, col)
	}

	before := t.RowCount()
	t = t.Deduplicate()
	if dropped := before - t.RowCount(); dropped > 0 {
		c.logger.InfoContext(ctx, "dropped duplicate rows", slog.Int("count", dropped))
	}

	c.fillMissing(t)

	return t
}

// normalizeColumn maps the raw codes of one categorical column. A missing
// column is an informational no-op.
func (c *Cleaner) normalizeColumn(ctx context.Context, t *dataset.Table, col string) {
	if !t.HasColumn(col) {
		return
	}
	for r := 0; r < t.RowCount(); r++ {
		t.Set(r, col, normalizeValue(t.Value(r, col)))
	}
	c.logger.InfoContext(ctx, "normalized categorical column", slog.String("column", col))
}

// normalizeEventColumns normalizes every cell of the event-date columns
// captured at load time.
func (c *Cleaner) normalizeEventColumns(ctx context.Context, t *dataset.Table) {
	cols := t.EventDateColumns()
	for _, col := range cols {
		for r := 0; r < t.RowCount(); r++ {
			t.Set(r, col, normalizeEventCell(t.Value(r, col)))
		}
	}
	if len(cols) > 0 {
		c.logger.InfoContext(ctx, "normalized event-date columns", slog.Int("count", len(cols)))
	}
}

// parseDateColumn coerces a date column to calendar-date values. Cells that
// hold an unparsable non-sentinel string drop their whole row; null and
// sentinel cells pass through so that catalog enrichment gaps survive a
// re-clean.
func (c *Cleaner) parseDateColumn(ctx context.Context, t *dataset.Table, col string, formats []string) *dataset.Table {
	if !t.HasColumn(col) {
		return t
	}

	out := t.Filter(func(int) bool { return false })
	dropped := 0
	for r := 0; r < t.RowCount(); r++ {
		v := t.Value(r, col)
		parsed, keep := parseDateCell(v, formats)
		if !keep {
			dropped++
			continue
		}
		row := t.Row(r)
		if i, ok := out.ColumnIndex(col); ok {
			row[i] = parsed
		}
		if err := out.AppendRow(row); err != nil {
			continue
		}
	}

	if dropped > 0 {
		c.logger.InfoContext(ctx, "dropped rows with unparsable dates",
			slog.String("column", col), slog.Int("count", dropped))
	}
	return out
}

// parseDateCell resolves a single cell against the accepted formats. The
// second result is false when the row holding the cell must be dropped.
func parseDateCell(v dataset.Value, formats []string) (dataset.Value, bool) {
	switch v.Kind {
	case dataset.KindTime:
		return dataset.Date(v.Time), true
	case dataset.KindNull:
		return v, true
	case dataset.KindString:
		s := strings.TrimSpace(v.Str)
		if s == "" || s == LabelUnknown {
			return dataset.Null(), true
		}
		for _, f := range formats {
			if ts, err := time.Parse(f, s); err == nil {
				return dataset.Date(ts), true
			}
		}
		return v, false
	default:
		return v, false
	}
}

// coerceNumericColumns coerces every recognized numeric column whose data
// is actually numeric. Null cells stay null so that the fill step can apply
// the sentinel.
func (c *Cleaner) coerceNumericColumns(ctx context.Context, t *dataset.Table) {
	for _, col := range domain.NumericColumns {
		if !t.HasColumn(col) || !columnIsNumeric(t, col) {
			continue
		}
		for r := 0; r < t.RowCount(); r++ {
			if f, ok := t.Value(r, col).AsNumber(); ok {
				t.Set(r, col, dataset.Number(f))
			}
		}
		c.logger.InfoContext(ctx, "coerced numeric column", slog.String("column", col))
	}
}

// columnIsNumeric reports whether every non-null cell of the column parses
// as a number, with at least one such cell. This mirrors dtype detection on
// load: a column with any textual value stays textual and is left alone.
func columnIsNumeric(t *dataset.Table, col string) bool {
	seen := false
	for r := 0; r < t.RowCount(); r++ {
		v := t.Value(r, col)
		if v.IsNull() {
			continue
		}
		if _, ok := v.AsNumber(); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// clipDifficulty rounds difficulty to the nearest whole number and clamps
// it to the closed interval [1, 5].
func (c *Cleaner) clipDifficulty(ctx context.Context, t *dataset.Table) {
	if !t.HasColumn(domain.ColDifficulty) {
		return
	}
	for r := 0; r < t.RowCount(); r++ {
		v := t.Value(r, domain.ColDifficulty)
		f, ok := v.AsNumber()
		if !ok {
			continue
		}
		f = math.Round(f)
		if f < 1 {
			f = 1
		} else if f > 5 {
			f = 5
		}
		t.Set(r, domain.ColDifficulty, dataset.Number(f))
	}
	c.logger.InfoContext(ctx, "clipped difficulty to [1,5]")
}

// explodeColumn splits a delimiter-separated column into one row per value,
// duplicating every other column across the new rows. Rows without the
// column's value survive unchanged.
func (c *Cleaner) explodeColumn(ctx context.Context, t *dataset.Table, col string) *dataset.Table {
	if !t.HasColumn(col) {
		return t
	}

	needsSplit := false
	for r := 0; r < t.RowCount(); r++ {
		v := t.Value(r, col)
		if v.Kind == dataset.KindString && strings.Contains(v.Str, ",") {
			needsSplit = true
			break
		}
	}
	if !needsSplit {
		return t
	}

	out := t.Filter(func(int) bool { return false })
	for r := 0; r < t.RowCount(); r++ {
		v := t.Value(r, col)
		if v.Kind != dataset.KindString || !strings.Contains(v.Str, ",") {
			if err := out.AppendRow(t.Row(r)); err != nil {
				continue
			}
			continue
		}
		for _, part := range strings.Split(v.Str, ",") {
			row := t.Row(r)
			if i, ok := out.ColumnIndex(col); ok {
				row[i] = dataset.String(strings.TrimSpace(part))
			}
			if err := out.AppendRow(row); err != nil {
				continue
			}
		}
	}

	c.logger.InfoContext(ctx, "exploded multi-valued column", slog.String("column", col))
	return out
}

// fillMissing replaces every residual null cell with the Unknown sentinel.
func (c *Cleaner) fillMissing(t *dataset.Table) {
	for r := 0; r < t.RowCount(); r++ {
		for _, col := range t.Columns() {
			if t.Value(r, col).IsNull() {
				t.Set(r, col, dataset.String(LabelUnknown))
			}
		}
	}
}
