package dataset

import (
	"fmt"
	"strings"
)

// Table is the in-memory tabular value the pipeline stages pass between
// them. Each stage treats its input as read-only and produces a new Table;
// mutating methods exist only for builders that own a freshly created or
// cloned instance.
type Table struct {
	cols      []string
	index     map[string]int
	rows      [][]Value
	eventCols []string
}

// New creates an empty table with the given column order.
func New(cols ...string) *Table {
	t := &Table{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range t.cols {
		t.index[c] = i
	}
	return t
}

// Columns returns the column names in order. The slice is a copy.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// AppendRow adds a row. Short rows are padded with nulls so that loaders can
// pass ragged CSV records through unchanged.
func (t *Table) AppendRow(vals []Value) error {
	if len(vals) > len(t.cols) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(vals), len(t.cols))
	}
	row := make([]Value, len(t.cols))
	copy(row, vals)
	t.rows = append(t.rows, row)
	return nil
}

// Value returns the cell at (row, column); missing columns read as null.
func (t *Table) Value(row int, col string) Value {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return Null()
	}
	return t.rows[row][i]
}

// Set writes the cell at (row, column). Unknown columns are ignored.
func (t *Table) Set(row int, col string, v Value) {
	if i, ok := t.index[col]; ok && row >= 0 && row < len(t.rows) {
		t.rows[row][i] = v
	}
}

// Row returns a copy of the row's cells in column order.
func (t *Table) Row(row int) []Value {
	if row < 0 || row >= len(t.rows) {
		return nil
	}
	return append([]Value(nil), t.rows[row]...)
}

// Column returns a copy of the named column's cells, one per row.
func (t *Table) Column(name string) []Value {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.rows))
	for r := range t.rows {
		out[r] = t.rows[r][i]
	}
	return out
}

// Clone returns a deep copy, including event-date column metadata.
func (t *Table) Clone() *Table {
	nt := New(t.cols...)
	nt.rows = make([][]Value, len(t.rows))
	for r := range t.rows {
		nt.rows[r] = append([]Value(nil), t.rows[r]...)
	}
	nt.eventCols = append([]string(nil), t.eventCols...)
	return nt
}

// Rename changes a column name in place. Renaming a missing column is a
// silent no-op so callers can apply legacy-name maps unconditionally.
func (t *Table) Rename(from, to string) bool {
	i, ok := t.index[from]
	if !ok {
		return false
	}
	delete(t.index, from)
	t.cols[i] = to
	t.index[to] = i
	for j, c := range t.eventCols {
		if c == from {
			t.eventCols[j] = to
		}
	}
	return true
}

// DropColumns removes the named columns in place; absent names are skipped.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(t.cols))
	newCols := make([]string, 0, len(t.cols))
	for i, c := range t.cols {
		if !drop[c] {
			keep = append(keep, i)
			newCols = append(newCols, c)
		}
	}
	if len(newCols) == len(t.cols) {
		return
	}
	for r := range t.rows {
		row := make([]Value, len(keep))
		for j, i := range keep {
			row[j] = t.rows[r][i]
		}
		t.rows[r] = row
	}
	t.cols = newCols
	t.index = make(map[string]int, len(newCols))
	for i, c := range newCols {
		t.index[c] = i
	}
	evs := t.eventCols[:0]
	for _, c := range t.eventCols {
		if !drop[c] {
			evs = append(evs, c)
		}
	}
	t.eventCols = evs
}

// Select returns a new table holding the named columns in the given order.
// Missing names are skipped rather than treated as errors.
func (t *Table) Select(names ...string) *Table {
	present := make([]string, 0, len(names))
	idx := make([]int, 0, len(names))
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			present = append(present, n)
			idx = append(idx, i)
		}
	}
	nt := New(present...)
	nt.rows = make([][]Value, len(t.rows))
	for r := range t.rows {
		row := make([]Value, len(idx))
		for j, i := range idx {
			row[j] = t.rows[r][i]
		}
		nt.rows[r] = row
	}
	return nt
}

// Filter returns a new table containing the rows the predicate keeps. The
// predicate receives the row index and must not retain the cell slice.
func (t *Table) Filter(keep func(row int) bool) *Table {
	nt := New(t.cols...)
	nt.eventCols = append([]string(nil), t.eventCols...)
	for r := range t.rows {
		if keep(r) {
			nt.rows = append(nt.rows, append([]Value(nil), t.rows[r]...))
		}
	}
	return nt
}

// AddColumn appends a column filled with null, returning false when the
// name already exists.
func (t *Table) AddColumn(name string) bool {
	if _, ok := t.index[name]; ok {
		return false
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, name)
	for r := range t.rows {
		t.rows[r] = append(t.rows[r], Null())
	}
	return true
}

// RowKey renders the identified columns of a row into a stable string key
// for joins and subset deduplication. Missing columns contribute a null.
func (t *Table) RowKey(row int, cols ...string) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(t.Value(row, c).key())
	}
	return b.String()
}

// fullRowKey renders every cell of a row, used for exact-duplicate removal.
func (t *Table) fullRowKey(row int) string {
	var b strings.Builder
	for i := range t.cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(t.rows[row][i].key())
	}
	return b.String()
}

// Deduplicate returns a new table with exact full-row duplicates removed
// when cols is empty, or duplicates over the named subset otherwise. The
// first occurrence wins.
func (t *Table) Deduplicate(cols ...string) *Table {
	seen := make(map[string]bool, len(t.rows))
	return t.Filter(func(r int) bool {
		var k string
		if len(cols) == 0 {
			k = t.fullRowKey(r)
		} else {
			k = t.RowKey(r, cols...)
		}
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}

// IsEventDateColumn is the structural predicate for event-date columns: the
// name consists entirely of decimal digits.
func IsEventDateColumn(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DetectEventDateColumns evaluates the event-date predicate over the current
// columns and stores the result as table metadata. Called once at load time.
func (t *Table) DetectEventDateColumns() {
	t.eventCols = t.eventCols[:0]
	for _, c := range t.cols {
		if IsEventDateColumn(c) {
			t.eventCols = append(t.eventCols, c)
		}
	}
}

// EventDateColumns returns the event-date column list captured at load time.
func (t *Table) EventDateColumns() []string {
	return append([]string(nil), t.eventCols...)
}
