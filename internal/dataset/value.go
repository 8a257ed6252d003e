package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the scalar types a cell can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

// Value is a single table cell. Missing cells are KindNull; the cleaner's
// final fill step replaces residual nulls with the "Unknown" sentinel.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

// Null returns the missing-cell value.
func Null() Value { return Value{Kind: KindNull} }

// String returns a string-kinded value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a number-kinded value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Date returns a time-kinded value truncated to calendar-date granularity.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{Kind: KindTime, Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// IsNull reports whether the cell is missing.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports exact cell equality, used for full-row deduplication.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	default:
		return v.Time.Equal(o.Time)
	}
}

// AsNumber returns the numeric interpretation of the cell and whether one
// exists. String cells parse leniently (surrounding whitespace and thousands
// separators are tolerated).
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		s := strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// NumberOrZero returns the numeric value, treating anything non-numeric as
// zero. This is the "missing side yields zero" rule of the popularity score.
func (v Value) NumberOrZero() float64 {
	if v.Kind == KindNumber {
		return v.Num
	}
	return 0
}

// Display renders the cell for CSV output and equality filters.
func (v Value) Display() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return v.Time.Format("2006-01-02")
	}
}

// key renders the cell for hashing in deduplication and joins. The prefix
// keeps values of different kinds from colliding.
func (v Value) key() string {
	switch v.Kind {
	case KindNull:
		return "\x00"
	case KindString:
		return "s:" + v.Str
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.Num, 'g', -1, 64)
	default:
		return "t:" + strconv.FormatInt(v.Time.Unix(), 10)
	}
}
