package preprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

// Reshaper melts a wide event log, one column per event date, into a long
// table with one row per (song, event date) pair.
type Reshaper struct {
	logger *slog.Logger
}

// NewReshaper creates a reshaper. A nil logger falls back to slog.Default.
func NewReshaper(logger *slog.Logger) *Reshaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reshaper{logger: logger.With(slog.String("component", "reshaper"))}
}

// Reshape melts the event-date columns of a log table into a long table with
// columns song, artist, dates and valueColumn. Every (row, event column)
// pair yields exactly one output row, so a table with r rows and d event
// columns melts to r*d rows. Columns that are neither identifiers nor
// parsable event dates are discarded.
func (s *Reshaper) Reshape(ctx context.Context, t *dataset.Table, valueColumn string) (*dataset.Table, error) {
	for _, col := range []string{domain.ColSong, domain.ColArtist} {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("reshape: missing identifier column %q", col)
		}
	}

	var eventCols []string
	var eventDates []dataset.Value
	for _, col := range t.EventDateColumns() {
		ts, err := time.Parse(CompactDateFormat, col)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unparsable event column",
				slog.String("column", col))
			continue
		}
		eventCols = append(eventCols, col)
		eventDates = append(eventDates, dataset.Date(ts))
	}
	out := dataset.New(domain.ColSong, domain.ColArtist, domain.ColDates, valueColumn)
	if len(eventCols) == 0 {
		// a log without event-date columns melts to an empty long table
		s.logger.InfoContext(ctx, "no event-date columns, emitting empty long table",
			slog.String("value_column", valueColumn))
		return out, nil
	}

	for r := 0; r < t.RowCount(); r++ {
		song := t.Value(r, domain.ColSong)
		artist := t.Value(r, domain.ColArtist)
		for i, col := range eventCols {
			row := []dataset.Value{song, artist, eventDates[i], t.Value(r, col)}
			if err := out.AppendRow(row); err != nil {
				return nil, fmt.Errorf("reshape: append row: %w", err)
			}
		}
	}

	s.logger.InfoContext(ctx, "reshaped event log",
		slog.String("value_column", valueColumn),
		slog.Int("event_columns", len(eventCols)),
		slog.Int("rows", out.RowCount()))
	return out, nil
}
