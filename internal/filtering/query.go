package filtering

import (
	"context"
	"fmt"
	"log/slog"

	"tuesdata/internal/dataset"
	"tuesdata/internal/preprocessing"
	"tuesdata/pkg/contracts/domain"
)

// Query projects the combined table onto a caller-selected column subset and
// derives play_count, the per-(song, artist) count of events with a play
// signal. The identity and date columns are always part of the selection,
// and the result is deduplicated on (song, artist, dates).
func (e *Engine) Query(ctx context.Context, t *dataset.Table, columns []string) (*dataset.Table, error) {
	for _, col := range []string{domain.ColSong, domain.ColArtist, domain.ColDates} {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("query: missing column %q", col)
		}
	}

	selection := []string{domain.ColSong, domain.ColArtist, domain.ColDates}
	picked := map[string]bool{
		domain.ColSong:   true,
		domain.ColArtist: true,
		domain.ColDates:  true,
	}
	for _, col := range columns {
		if picked[col] {
			continue
		}
		if !t.HasColumn(col) {
			e.logger.InfoContext(ctx, "skipping absent query column", slog.String("column", col))
			continue
		}
		selection = append(selection, col)
		picked[col] = true
	}

	counts := make(map[string]float64)
	for r := 0; r < t.RowCount(); r++ {
		k := t.RowKey(r, domain.ColSong, domain.ColArtist)
		counts[k] += binarizePlayValue(t.Value(r, domain.ColPlayValue))
	}

	out := t.Select(selection...)
	out.AddColumn(domain.ColPlayCount)
	for r := 0; r < out.RowCount(); r++ {
		k := out.RowKey(r, domain.ColSong, domain.ColArtist)
		out.Set(r, domain.ColPlayCount, dataset.Number(counts[k]))
	}

	out = out.Deduplicate(domain.ColSong, domain.ColArtist, domain.ColDates)
	e.logger.InfoContext(ctx, "executed query",
		slog.Int("columns", out.Width()),
		slog.Int("rows", out.RowCount()))
	return out, nil
}

// binarizePlayValue maps a play cell to its contribution to play_count:
// null cells, numeric zero and the Unknown sentinel count for nothing, any
// other value counts as one play.
func binarizePlayValue(v dataset.Value) float64 {
	switch v.Kind {
	case dataset.KindNull:
		return 0
	case dataset.KindNumber:
		if v.Num == 0 {
			return 0
		}
		return 1
	case dataset.KindString:
		if v.Str == "" || v.Str == "0" || v.Str == preprocessing.LabelUnknown {
			return 0
		}
		return 1
	default:
		return 1
	}
}
