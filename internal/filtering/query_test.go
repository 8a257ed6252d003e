package filtering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

func TestQueryDerivesPlayCount(t *testing.T) {
	engine := NewEngine(nil)
	in := buildTable(t,
		[]string{"song", "artist", "dates", "play_value", "year"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), day(3), dataset.String("Audience"), dataset.Number(2013)},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), day(10), dataset.String("Group"), dataset.Number(2013)},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), day(17), dataset.String("Unknown"), dataset.Number(2013)},
		[]dataset.Value{dataset.String("Zombie"), dataset.String("The Cranberries"), day(3), dataset.String("Audience"), dataset.Number(1994)},
	)

	out, err := engine.Query(context.Background(), in, []string{"year"})
	require.NoError(t, err)

	assert.Equal(t, []string{"song", "artist", "dates", "year", "play_count"}, out.Columns())
	require.Equal(t, 4, out.RowCount())

	// the Unknown sentinel counts for nothing, so Riptide has two plays
	assert.Equal(t, dataset.Number(2), out.Value(0, domain.ColPlayCount))
	assert.Equal(t, dataset.Number(2), out.Value(2, domain.ColPlayCount))
	assert.Equal(t, dataset.Number(1), out.Value(3, domain.ColPlayCount))
}

func TestQueryDeduplicatesOnIdentityAndDate(t *testing.T) {
	engine := NewEngine(nil)
	// the language explosion duplicates (song, artist, dates) rows
	in := buildTable(t,
		[]string{"song", "artist", "dates", "play_value", "language"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), day(3), dataset.String("Audience"), dataset.String("English")},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), day(3), dataset.String("Audience"), dataset.String("French")},
	)

	out, err := engine.Query(context.Background(), in, nil)
	require.NoError(t, err)

	require.Equal(t, 1, out.RowCount())
	// both exploded rows carry a play signal and both are counted
	assert.Equal(t, dataset.Number(2), out.Value(0, domain.ColPlayCount))
}

func TestQueryAlwaysIncludesIdentityColumns(t *testing.T) {
	engine := NewEngine(nil)
	in := buildTable(t,
		[]string{"song", "artist", "dates", "play_value"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), day(3), dataset.String("Audience")},
	)

	out, err := engine.Query(context.Background(), in, []string{"song", "no_such_column"})
	require.NoError(t, err)

	assert.Equal(t, []string{"song", "artist", "dates", "play_count"}, out.Columns())
}

func TestQueryMissingIdentityColumn(t *testing.T) {
	engine := NewEngine(nil)
	in := buildTable(t,
		[]string{"song", "artist"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy")},
	)

	_, err := engine.Query(context.Background(), in, nil)
	assert.ErrorContains(t, err, "dates")
}

func TestBinarizePlayValue(t *testing.T) {
	tests := []struct {
		name string
		in   dataset.Value
		want float64
	}{
		{name: "null", in: dataset.Null(), want: 0},
		{name: "numeric zero", in: dataset.Number(0), want: 0},
		{name: "numeric nonzero", in: dataset.Number(3), want: 1},
		{name: "unknown sentinel", in: dataset.String("Unknown"), want: 0},
		{name: "empty string", in: dataset.String(""), want: 0},
		{name: "zero string", in: dataset.String("0"), want: 0},
		{name: "attendee label", in: dataset.String("Audience"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, binarizePlayValue(tt.in))
		})
	}
}
