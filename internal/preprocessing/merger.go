package preprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

// Merger combines the melted play and request logs and enriches the result
// with catalog attributes.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger. A nil logger falls back to slog.Default.
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger.With(slog.String("component", "merger"))}
}

// MergeEvents outer-joins the play and request tables on (song, artist,
// dates). Play rows keep their order and pick up the requested value of the
// first matching request row, or null when none matches. Request rows that
// match no play row are appended afterwards with a null play value.
func (m *Merger) MergeEvents(ctx context.Context, plays, requests *dataset.Table) (*dataset.Table, error) {
	keyCols := []string{domain.ColSong, domain.ColArtist, domain.ColDates}
	for _, t := range []*dataset.Table{plays, requests} {
		for _, col := range keyCols {
			if !t.HasColumn(col) {
				return nil, fmt.Errorf("merge: missing key column %q", col)
			}
		}
	}
	if !plays.HasColumn(domain.ColPlayValue) {
		return nil, fmt.Errorf("merge: missing column %q", domain.ColPlayValue)
	}
	if !requests.HasColumn(domain.ColRequestValue) {
		return nil, fmt.Errorf("merge: missing column %q", domain.ColRequestValue)
	}

	byKey := make(map[string]int, requests.RowCount())
	for r := 0; r < requests.RowCount(); r++ {
		k := requests.RowKey(r, keyCols...)
		if _, ok := byKey[k]; !ok {
			byKey[k] = r
		}
	}

	out := dataset.New(domain.ColSong, domain.ColArtist, domain.ColDates,
		domain.ColPlayValue, domain.ColRequestValue)
	matched := make(map[string]bool, len(byKey))
	for r := 0; r < plays.RowCount(); r++ {
		k := plays.RowKey(r, keyCols...)
		requested := dataset.Null()
		if i, ok := byKey[k]; ok {
			requested = requests.Value(i, domain.ColRequestValue)
			matched[k] = true
		}
		row := []dataset.Value{
			plays.Value(r, domain.ColSong),
			plays.Value(r, domain.ColArtist),
			plays.Value(r, domain.ColDates),
			plays.Value(r, domain.ColPlayValue),
			requested,
		}
		if err := out.AppendRow(row); err != nil {
			return nil, fmt.Errorf("merge: append play row: %w", err)
		}
	}

	unmatched := 0
	for r := 0; r < requests.RowCount(); r++ {
		k := requests.RowKey(r, keyCols...)
		if matched[k] || byKey[k] != r {
			continue
		}
		row := []dataset.Value{
			requests.Value(r, domain.ColSong),
			requests.Value(r, domain.ColArtist),
			requests.Value(r, domain.ColDates),
			dataset.Null(),
			requests.Value(r, domain.ColRequestValue),
		}
		if err := out.AppendRow(row); err != nil {
			return nil, fmt.Errorf("merge: append request row: %w", err)
		}
		unmatched++
	}

	m.logger.InfoContext(ctx, "merged event tables",
		slog.Int("rows", out.RowCount()),
		slog.Int("request_only_rows", unmatched))
	return out, nil
}

// JoinCatalog left-joins the merged event table with the song catalog on
// (song, artist). Catalog columns that do not collide with existing ones
// are appended. An event row matching several catalog rows, as happens for
// multi-language songs, is emitted once per match; a row without a catalog
// match keeps null cells in the catalog columns.
func (m *Merger) JoinCatalog(ctx context.Context, combined, catalog *dataset.Table) (*dataset.Table, error) {
	keyCols := []string{domain.ColSong, domain.ColArtist}
	for _, t := range []*dataset.Table{combined, catalog} {
		for _, col := range keyCols {
			if !t.HasColumn(col) {
				return nil, fmt.Errorf("join: missing key column %q", col)
			}
		}
	}

	var extraCols []string
	for _, col := range catalog.Columns() {
		if !combined.HasColumn(col) {
			extraCols = append(extraCols, col)
		}
	}

	byKey := make(map[string][]int, catalog.RowCount())
	for r := 0; r < catalog.RowCount(); r++ {
		k := catalog.RowKey(r, keyCols...)
		byKey[k] = append(byKey[k], r)
	}

	out := dataset.New(append(combined.Columns(), extraCols...)...)
	misses := 0
	for r := 0; r < combined.RowCount(); r++ {
		matches := byKey[combined.RowKey(r, keyCols...)]
		if len(matches) == 0 {
			row := combined.Row(r)
			for range extraCols {
				row = append(row, dataset.Null())
			}
			if err := out.AppendRow(row); err != nil {
				return nil, fmt.Errorf("join: append row: %w", err)
			}
			misses++
			continue
		}
		for _, i := range matches {
			row := combined.Row(r)
			for _, col := range extraCols {
				row = append(row, catalog.Value(i, col))
			}
			if err := out.AppendRow(row); err != nil {
				return nil, fmt.Errorf("join: append row: %w", err)
			}
		}
	}

	m.logger.InfoContext(ctx, "joined catalog attributes",
		slog.Int("catalog_columns", len(extraCols)),
		slog.Int("rows_without_catalog_match", misses))
	return out, nil
}

// DeriveDecade appends a decade column computed from the release year.
// Cells without a numeric year stay null and are filled by the final clean.
func (m *Merger) DeriveDecade(ctx context.Context, t *dataset.Table) {
	if !t.HasColumn(domain.ColYear) {
		return
	}
	t.AddColumn(domain.ColDecade)
	for r := 0; r < t.RowCount(); r++ {
		if y, ok := t.Value(r, domain.ColYear).AsNumber(); ok {
			t.Set(r, domain.ColDecade, dataset.Number(math.Floor(y/10)*10))
		}
	}
	m.logger.InfoContext(ctx, "derived decade column")
}
