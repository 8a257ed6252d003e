package preprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuesdata/internal/dataset"
	"tuesdata/pkg/contracts/domain"
)

func eventDate(day int) dataset.Value {
	return dataset.Date(time.Date(2023, 1, day, 0, 0, 0, 0, time.UTC))
}

func TestMergeEventsOuterJoin(t *testing.T) {
	plays := buildTable(t,
		[]string{"song", "artist", "dates", "play_value"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), eventDate(3), dataset.String("Audience")},
		[]dataset.Value{dataset.String("Zombie"), dataset.String("The Cranberries"), eventDate(3), dataset.String("Group")},
	)
	requests := buildTable(t,
		[]string{"song", "artist", "dates", "requested_value"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), eventDate(3), dataset.String("Audience")},
		[]dataset.Value{dataset.String("Hallelujah"), dataset.String("Leonard Cohen"), eventDate(3), dataset.String("Group")},
	)

	out, err := NewMerger(nil).MergeEvents(context.Background(), plays, requests)
	require.NoError(t, err)

	assert.Equal(t, []string{"song", "artist", "dates", "play_value", "requested_value"}, out.Columns())
	require.Equal(t, 3, out.RowCount(), "outer join keeps rows from both sides")

	// matched play row carries the request value
	assert.Equal(t, dataset.String("Audience"), out.Value(0, "requested_value"))
	// play-only row has a null request value
	assert.True(t, out.Value(1, "requested_value").IsNull())
	// request-only row is appended with a null play value
	assert.Equal(t, dataset.String("Hallelujah"), out.Value(2, "song"))
	assert.True(t, out.Value(2, "play_value").IsNull())
	assert.Equal(t, dataset.String("Group"), out.Value(2, "requested_value"))
}

func TestMergeEventsMissingColumn(t *testing.T) {
	plays := buildTable(t,
		[]string{"song", "artist", "dates"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), eventDate(3)},
	)
	requests := buildTable(t,
		[]string{"song", "artist", "dates", "requested_value"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), eventDate(3), dataset.String("A")},
	)

	_, err := NewMerger(nil).MergeEvents(context.Background(), plays, requests)
	assert.ErrorContains(t, err, "play_value")
}

func TestJoinCatalog(t *testing.T) {
	combined := buildTable(t,
		[]string{"song", "artist", "dates", "play_value", "requested_value"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), eventDate(3), dataset.String("Audience"), dataset.Null()},
		[]dataset.Value{dataset.String("Wonderwall"), dataset.String("Oasis"), eventDate(3), dataset.String("Group"), dataset.Null()},
	)
	catalog := buildTable(t,
		[]string{"song", "artist", "year", "language"},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), dataset.Number(2013), dataset.String("English")},
		[]dataset.Value{dataset.String("Riptide"), dataset.String("Vance Joy"), dataset.Number(2013), dataset.String("French")},
	)

	out, err := NewMerger(nil).JoinCatalog(context.Background(), combined, catalog)
	require.NoError(t, err)

	assert.Equal(t, []string{"song", "artist", "dates", "play_value", "requested_value", "year", "language"}, out.Columns())
	require.Equal(t, 3, out.RowCount(), "one output row per catalog match")

	assert.Equal(t, dataset.String("English"), out.Value(0, "language"))
	assert.Equal(t, dataset.String("French"), out.Value(1, "language"))
	// event values duplicate across the matches
	assert.Equal(t, dataset.String("Audience"), out.Value(1, "play_value"))
	// row without a catalog match keeps nulls in catalog columns
	assert.True(t, out.Value(2, "year").IsNull())
	assert.True(t, out.Value(2, "language").IsNull())
}

func TestDeriveDecade(t *testing.T) {
	tbl := buildTable(t,
		[]string{"song", "year"},
		[]dataset.Value{dataset.String("Riptide"), dataset.Number(2013)},
		[]dataset.Value{dataset.String("Zombie"), dataset.Number(1994)},
		[]dataset.Value{dataset.String("Hallelujah"), dataset.String(LabelUnknown)},
	)

	NewMerger(nil).DeriveDecade(context.Background(), tbl)

	require.True(t, tbl.HasColumn(domain.ColDecade))
	assert.Equal(t, dataset.Number(2010), tbl.Value(0, domain.ColDecade))
	assert.Equal(t, dataset.Number(1990), tbl.Value(1, domain.ColDecade))
	assert.True(t, tbl.Value(2, domain.ColDecade).IsNull())
}
