package preprocessing

import (
	"strings"

	"tuesdata/internal/dataset"
)

// Canonical categorical labels.
const (
	LabelAudience = "Audience"
	LabelGroup    = "Group"
	LabelUnknown  = "Unknown"
)

// replaceDict is the fixed mapping from raw attendee/requester codes to
// canonical labels. Values outside the map pass through unchanged.
var replaceDict = map[string]string{
	"A":     LabelAudience,
	"A.":    LabelAudience,
	"S":     LabelAudience,
	"P":     LabelAudience,
	"G":     LabelGroup,
	"Group": LabelGroup,
	"?":     LabelUnknown,
	"nan":   LabelUnknown,
	"":      LabelUnknown,
}

// NormalizeCode maps a raw code to its canonical label. Pure function of
// the value and the fixed mapping table.
func NormalizeCode(raw string) string {
	if label, ok := replaceDict[raw]; ok {
		return label
	}
	return raw
}

// normalizeValue applies the mapping to a string cell; other kinds pass
// through. Null cells are left for the cleaner's fill step.
func normalizeValue(v dataset.Value) dataset.Value {
	if v.Kind != dataset.KindString {
		return v
	}
	return dataset.String(NormalizeCode(v.Str))
}

// normalizeEventCell applies the mapping to an event-date cell. Raw codes
// are trimmed first and missing cells normalize to Unknown, mirroring how
// attendance sheets record absent codes.
func normalizeEventCell(v dataset.Value) dataset.Value {
	if v.IsNull() {
		return dataset.String(LabelUnknown)
	}
	if v.Kind != dataset.KindString {
		return v
	}
	return dataset.String(NormalizeCode(strings.TrimSpace(v.Str)))
}
