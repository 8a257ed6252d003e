package domain

// Canonical column names shared across the loader, the preprocessing
// pipeline, the filter engine and the exporter. Input files may use legacy
// names; the loader and cleaner rename them to these.
const (
	ColSong          = "song"
	ColArtist        = "artist"
	ColDates         = "dates"
	ColPlayValue     = "play_value"
	ColRequestValue  = "requested_value"
	ColYear          = "year"
	ColDecade        = "decade"
	ColType          = "type"
	ColPerformerType = "type_of_performer"
	ColDuration      = "duration"
	ColLanguage      = "language"
	ColSource        = "source"
	ColDifficulty    = "difficulty"
	ColSpecialBooks  = "special_books"
	ColFirstPlayDate = "first_play_date"
	ColPopularity    = "popularity_score"
	ColIsPopular     = "is_popular"
	ColRequestedBy   = "requested_by"
	ColAudienceType  = "audience_type"
	ColPlayCount     = "play_count"
)

// TableKind identifies which of the three input tables a file holds.
type TableKind string

const (
	TableCatalog    TableKind = "catalog"
	TablePlayLog    TableKind = "play"
	TableRequestLog TableKind = "request"
)

// Valid reports whether k names one of the three input tables.
func (k TableKind) Valid() bool {
	switch k {
	case TableCatalog, TablePlayLog, TableRequestLog:
		return true
	}
	return false
}

// CatalogRequiredColumns are the columns a catalog file must carry, checked
// before any rename is applied. A load with any of these missing fails with
// the full list of missing names.
var CatalogRequiredColumns = []string{
	"song", "artist", "year", "type", "gender", "duration",
	"language", "source", "date", "difficulty", "specialbooks",
}

// LogRequiredColumns are the columns a play or request log must carry.
// Every other column of a log is a candidate event-date column.
var LogRequiredColumns = []string{"song", "artist"}

// CatalogLoadRenames is applied to the catalog immediately after the
// required-column check.
var CatalogLoadRenames = map[string]string{
	"specialbooks": ColSpecialBooks,
	"gender":       ColPerformerType,
}

// CombinedColumns is the column contract of the exported combined dataset.
// Columns absent from a particular run are skipped; unrecognized columns are
// appended after these in their table order.
var CombinedColumns = []string{
	ColSong, ColArtist, ColDates, ColPlayValue, ColRequestValue,
	ColYear, ColDecade, ColType, ColPerformerType, ColDuration,
	ColLanguage, ColSource, ColDifficulty, ColSpecialBooks,
	ColFirstPlayDate, ColPopularity, ColIsPopular,
}

// NumericColumns is the closed set of columns the cleaner coerces to
// numbers. There is deliberately no schema inference beyond this list.
var NumericColumns = []string{
	ColYear, ColDuration, ColDifficulty, ColPlayValue,
	ColRequestValue, ColPopularity, ColDecade, ColPlayCount,
}

// MultiValueColumns are delimiter-separated columns the cleaner explodes
// into one row per value.
var MultiValueColumns = []string{ColLanguage, "specialbooks", ColSpecialBooks}

// PassthroughColumns are dropped by the cleaner when present.
var PassthroughColumns = []string{"tabber", "extra_column"}

// Exported file names for the combined dataset.
const (
	CombinedCleanedFile = "combined_data_cleaned.csv"
	CombinedDatasetFile = "combined_dataset.csv"
)
