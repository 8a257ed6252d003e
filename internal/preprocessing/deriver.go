package preprocessing

import (
	"context"
	"log/slog"
	"strconv"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

// Deriver computes the popularity score and flag for the combined table.
type Deriver struct {
	logger *slog.Logger
}

// NewDeriver creates a deriver. A nil logger falls back to slog.Default.
func NewDeriver(logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{logger: logger.With(slog.String("component", "deriver"))}
}

// DeriveFlags appends popularity_score, the per-row sum of the play and
// request values with non-numeric cells counting as zero, and is_popular,
// true for rows scoring strictly above the table mean. The derivation only
// runs when both value columns are present; otherwise the table passes
// through unchanged.
func (d *Deriver) DeriveFlags(ctx context.Context, t *dataset.Table) error {
	for _, col := range []string{domain.ColPlayValue, domain.ColRequestValue} {
		if !t.HasColumn(col) {
			d.logger.WarnContext(ctx, "skipping flag derivation, column absent",
				slog.String("column", col))
			return nil
		}
	}

	t.AddColumn(domain.ColPopularity)
	var sum float64
	for r := 0; r < t.RowCount(); r++ {
		score := t.Value(r, domain.ColPlayValue).NumberOrZero() +
			t.Value(r, domain.ColRequestValue).NumberOrZero()
		t.Set(r, domain.ColPopularity, dataset.Number(score))
		sum += score
	}

	mean := 0.0
	if t.RowCount() > 0 {
		mean = sum / float64(t.RowCount())
	}

	t.AddColumn(domain.ColIsPopular)
	for r := 0; r < t.RowCount(); r++ {
		popular := t.Value(r, domain.ColPopularity).NumberOrZero() > mean
		t.Set(r, domain.ColIsPopular, dataset.String(strconv.FormatBool(popular)))
	}

	d.logger.InfoContext(ctx, "derived popularity flags",
		slog.Float64("mean_score", mean))
	return nil
}
