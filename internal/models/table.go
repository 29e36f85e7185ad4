package models

import (
	"github.com/pkg/errors"
)

// Table is an ordered set of rows sharing one column list.
// A Table is never mutated after construction; every transformation
// builds a new one. Rows may share Value slices with their source table.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
	// origin[i] is the uploaded row that row i came from; nil means row i
	// is upload row i.
	origin []int
}

// NewTable validates that column names are unique and every row is as wide
// as the column list.
func NewTable(columns []string, rows [][]Value) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, errors.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, errors.Errorf("row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Table{columns: columns, index: index, rows: rows}, nil
}

// MustTable is NewTable for fixtures and literals known to be well formed.
func MustTable(columns []string, rows [][]Value) *Table {
	t, err := NewTable(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Index(column string) (int, bool) {
	i, ok := t.index[column]
	return i, ok
}

func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Origin is the row number, in the uploaded file's body, that row i came
// from. Diagnostics use it so they point at the upload whatever filtering
// happened before.
func (t *Table) Origin(i int) int {
	if t.origin == nil {
		return i
	}
	return t.origin[i]
}

// Rebuild builds a table with new columns and the same number of rows as
// t, row i of the result standing for row i of t.
func (t *Table) Rebuild(columns []string, rows [][]Value) (*Table, error) {
	if len(rows) != len(t.rows) {
		return nil, errors.Errorf("rebuilt table has %d rows, source has %d", len(rows), len(t.rows))
	}
	out, err := NewTable(columns, rows)
	if err != nil {
		return nil, err
	}
	out.origin = t.origin
	return out, nil
}

// Derive builds a table whose row k came from t's row from[k].
func (t *Table) Derive(columns []string, rows [][]Value, from []int) (*Table, error) {
	if len(from) != len(rows) {
		return nil, errors.Errorf("derived table has %d rows but %d origins", len(rows), len(from))
	}
	out, err := NewTable(columns, rows)
	if err != nil {
		return nil, err
	}
	out.origin = t.origins(from)
	return out, nil
}

func (t *Table) origins(indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = t.Origin(idx)
	}
	return out
}

// Row returns the backing slice of row i. Callers must not modify it.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Value returns the cell at row i, or a null Value when column is unknown.
func (t *Table) Value(i int, column string) Value {
	c, ok := t.index[column]
	if !ok {
		return NullValue()
	}
	return t.rows[i][c]
}

// Select builds a table from the given row indices, in the given order.
func (t *Table) Select(indices []int) *Table {
	rows := make([][]Value, len(indices))
	for i, idx := range indices {
		rows[i] = t.rows[idx]
	}
	return &Table{columns: t.columns, index: t.index, rows: rows, origin: t.origins(indices)}
}

// Slice returns at most limit rows starting at offset.
func (t *Table) Slice(offset, limit int) *Table {
	if offset >= len(t.rows) {
		return &Table{columns: t.columns, index: t.index}
	}
	end := offset + limit
	if limit < 0 || end > len(t.rows) {
		end = len(t.rows)
	}
	out := &Table{columns: t.columns, index: t.index, rows: t.rows[offset:end]}
	if t.origin != nil {
		out.origin = t.origin[offset:end]
	} else if offset > 0 {
		out.origin = make([]int, end-offset)
		for i := range out.origin {
			out.origin[i] = offset + i
		}
	}
	return out
}

// Records renders rows as column-name keyed maps for JSON responses.
func (t *Table) Records() []map[string]Value {
	out := make([]map[string]Value, len(t.rows))
	for i, r := range t.rows {
		m := make(map[string]Value, len(t.columns))
		for c, name := range t.columns {
			m[name] = r[c]
		}
		out[i] = m
	}
	return out
}
