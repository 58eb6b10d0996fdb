// Package table holds the rectangular (headers, rows) shape every export
// parser produces, together with the schema merge and header sanitizing
// applied before a table is written out.
//
// A Table is positional: each Row is exactly as wide as Headers and cell i
// belongs to header i. Absent data is the distinguished NA cell, never a
// short row and never the literal string "NA".
package table

import (
	"fmt"
	"strconv"
)

// NAText is how absent cells are rendered unless a writer is told otherwise.
const NAText = "NA"

// Cell is a single table value. The zero Cell is NA.
type Cell struct {
	value   string
	present bool
}

// NA is the absent cell.
var NA = Cell{}

// Val returns a present cell holding s. Val("") is a present empty string,
// which is not the same thing as NA.
func Val(s string) Cell {
	return Cell{value: s, present: true}
}

// IsNA reports whether the cell is absent.
func (c Cell) IsNA() bool { return !c.present }

// Value returns the cell text and whether the cell is present.
func (c Cell) Value() (string, bool) { return c.value, c.present }

// Text renders the cell, using na for absent cells.
func (c Cell) Text(na string) string {
	if !c.present {
		return na
	}
	return c.value
}

// String renders the cell with the default NA text.
func (c Cell) String() string { return c.Text(NAText) }

// Row is one positional record.
type Row []Cell

// Strings builds a row of present cells.
func Strings(vals ...string) Row {
	row := make(Row, len(vals))
	for i, v := range vals {
		row[i] = Val(v)
	}
	return row
}

// Texts renders every cell of the row.
func (r Row) Texts(na string) []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Text(na)
	}
	return out
}

// DuplicateHeaderError is returned when a header list names a column twice.
type DuplicateHeaderError struct {
	Name string
}

func (e *DuplicateHeaderError) Error() string {
	return fmt.Sprintf("duplicate column %q", e.Name)
}

// RowWidthError is returned by Append for a row wider than the headers.
type RowWidthError struct {
	Width, Want int
}

func (e *RowWidthError) Error() string {
	return fmt.Sprintf("row has %d cells, table has %d columns", e.Width, e.Want)
}

// Table is an ordered header list plus rows aligned to it.
type Table struct {
	Headers []string
	Rows    []Row

	index map[string]int
}

// New creates an empty table. Headers must be distinct.
func New(headers []string) (*Table, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; dup {
			return nil, &DuplicateHeaderError{Name: h}
		}
		index[h] = i
	}
	return &Table{
		Headers: append([]string(nil), headers...),
		index:   index,
	}, nil
}

// MustNew is New for header lists known to be distinct.
func MustNew(headers ...string) *Table {
	t, err := New(headers)
	if err != nil {
		panic(err)
	}
	return t
}

// Width is the number of columns.
func (t *Table) Width() int { return len(t.Headers) }

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of a column.
func (t *Table) Index(name string) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[name]
	return i, ok
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		t.index[h] = i
	}
}

// Append adds a row. Short rows are padded with NA; rows wider than the
// header list are rejected.
func (t *Table) Append(row Row) error {
	switch {
	case len(row) > len(t.Headers):
		return &RowWidthError{Width: len(row), Want: len(t.Headers)}
	case len(row) < len(t.Headers):
		padded := make(Row, len(t.Headers))
		copy(padded, row)
		row = padded
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Cell returns the value of column name in row i.
func (t *Table) Cell(i int, name string) (Cell, bool) {
	col, ok := t.Index(name)
	if !ok || i < 0 || i >= len(t.Rows) {
		return NA, false
	}
	return t.Rows[i][col], true
}

// Column returns every value of one column.
func (t *Table) Column(name string) ([]Cell, bool) {
	col, ok := t.Index(name)
	if !ok {
		return nil, false
	}
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[col]
	}
	return out, true
}

// Skip drops the first n rows and returns how many were dropped.
func (t *Table) Skip(n int) int {
	if n <= 0 {
		return 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	t.Rows = t.Rows[n:]
	return n
}

// Prepend returns a new table whose columns are the given constant fields
// followed by t's columns. Fields whose name is already a column of t are
// left out so headers stay distinct.
func (t *Table) Prepend(names, values []string) *Table {
	var keepNames []string
	var keepVals []Cell
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if _, taken := t.Index(n); taken || seen[n] {
			continue
		}
		seen[n] = true
		keepNames = append(keepNames, n)
		keepVals = append(keepVals, Val(values[i]))
	}
	if len(keepNames) == 0 {
		return t
	}

	out := &Table{Headers: append(keepNames, t.Headers...)}
	out.reindex()
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		wide := make(Row, 0, len(out.Headers))
		wide = append(wide, keepVals...)
		out.Rows[i] = append(wide, row...)
	}
	return out
}

// Unique suffixes repeated names with .2, .3, ... so the result can be used
// as a header list.
func Unique(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if !seen[n] {
			seen[n] = true
			out[i] = n
			continue
		}
		for k := 2; ; k++ {
			candidate := n + "." + strconv.Itoa(k)
			if !taken[candidate] && !seen[candidate] {
				seen[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}
