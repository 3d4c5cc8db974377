// Package table models the tabular results returned by the query engine.
//
// A Table is an ordered sequence of rows. Row 0 is the header: an ordered
// sequence of column-name strings. Every data row aligns positionally with
// the header and has the same length. Cells are strings, numbers, booleans,
// or null, the value set JSON can carry in an array-of-arrays response.
package table

import (
	"encoding/json"
	"fmt"
)

// Value is a single cell. By construction it is one of:
// string, float64, bool, or nil.
type Value = any

// Table is a query result: row 0 is the header, the rest are data rows.
type Table [][]Value

// Parse decodes an engine response body (a JSON array of arrays) into a
// validated Table.
func Parse(data []byte) (Table, error) {
	var rows [][]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode result table: %w", err)
	}
	return FromRows(rows)
}

// FromRows builds a validated Table from generic rows, such as those produced
// by a YAML or JSON decoder.
//
// Integer cells are normalized to float64 here, at the construction boundary.
// YAML decodes 1 as int while JSON decodes it as float64; normalizing once at
// construction lets comparison stay exact with no coercion of its own.
func FromRows(rows [][]any) (Table, error) {
	t := make(Table, len(rows))
	for i, row := range rows {
		cells := make([]Value, len(row))
		for j, cell := range row {
			v, err := normalize(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %d: %w", i, j, err)
			}
			cells[j] = v
		}
		t[i] = cells
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// normalize converts a decoded cell to the canonical Value set.
func normalize(cell any) (Value, error) {
	switch v := cell.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case bool:
		return v, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", cell)
	}
}

// Validate checks the structural invariants: a header row exists, every
// header cell is a string, and every data row has the header's length.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("table has no header row")
	}
	for j, cell := range t[0] {
		if _, ok := cell.(string); !ok {
			return fmt.Errorf("header column %d: expected string, got %T", j, cell)
		}
	}
	width := len(t[0])
	for i := 1; i < len(t); i++ {
		if len(t[i]) != width {
			return fmt.Errorf("row %d has %d cells, header has %d", i, len(t[i]), width)
		}
	}
	return nil
}

// Header returns the column names from row 0.
// The table must have been validated.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	names := make([]string, len(t[0]))
	for j, cell := range t[0] {
		names[j], _ = cell.(string)
	}
	return names
}

// NumDataRows returns the number of rows excluding the header.
func (t Table) NumDataRows() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Equal reports whether two tables are exactly equal: same row count, same
// header, same cell values in the same order.
func (t Table) Equal(other Table) bool {
	return t.FirstDiff(other) == nil
}

// Diff locates the first difference between an actual and an expected table.
//
// Row and Col are indices into the full table, so Row 0 is the header.
// Col is -1 for a row-count or row-length mismatch; Row is -1 for a
// table-level row-count mismatch.
type Diff struct {
	Row    int
	Col    int
	Column string // header name for the differing column, if known
	Want   Value
	Got    Value
}

func (d *Diff) String() string {
	switch {
	case d.Row == -1:
		return fmt.Sprintf("row count: want %v rows, got %v", d.Want, d.Got)
	case d.Col == -1:
		return fmt.Sprintf("row %d length: want %v cells, got %v", d.Row, d.Want, d.Got)
	case d.Column != "":
		return fmt.Sprintf("row %d, column %d (%s): want %s, got %s",
			d.Row, d.Col, d.Column, formatCell(d.Want), formatCell(d.Got))
	default:
		return fmt.Sprintf("row %d, column %d: want %s, got %s",
			d.Row, d.Col, formatCell(d.Want), formatCell(d.Got))
	}
}

// FirstDiff compares t (the actual table) against expected and returns the
// first difference in row-major order, or nil if the tables are equal.
// Comparison is exact: no numeric or whitespace normalization is performed.
func (t Table) FirstDiff(expected Table) *Diff {
	rows := len(t)
	if len(expected) < rows {
		rows = len(expected)
	}
	for i := 0; i < rows; i++ {
		cols := len(t[i])
		if len(expected[i]) < cols {
			cols = len(expected[i])
		}
		for j := 0; j < cols; j++ {
			if !cellEqual(t[i][j], expected[i][j]) {
				return &Diff{
					Row:    i,
					Col:    j,
					Column: t.columnName(j),
					Want:   expected[i][j],
					Got:    t[i][j],
				}
			}
		}
		if len(t[i]) != len(expected[i]) {
			return &Diff{Row: i, Col: -1, Want: len(expected[i]), Got: len(t[i])}
		}
	}
	if len(t) != len(expected) {
		return &Diff{Row: -1, Col: -1, Want: len(expected), Got: len(t)}
	}
	return nil
}

// columnName returns the header name for column j, or "" when the header
// does not cover it.
func (t Table) columnName(j int) string {
	if len(t) == 0 || j >= len(t[0]) {
		return ""
	}
	name, _ := t[0][j].(string)
	return name
}

// cellEqual compares two normalized cells exactly.
func cellEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	// Normalized cells are comparable (string, float64, bool); differing
	// dynamic types compare unequal.
	return a == b
}
