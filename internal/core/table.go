package core

// table.go defines the in-memory columnar dataset every component reads or mutates.
//
// A Table is an ordered list of named columns of equal length. Each column carries
// an explicit ColumnKind set at ingestion; components never re-derive the kind from
// the cell contents. Cells follow the Valid-flag convention used for nullable
// database values: a cell with Valid=false is missing.

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ColumnKind classifies a column for routing to kind-specific checks and operations.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
)

// Value is a single cell. Num is meaningful for numeric columns, Str for categorical ones.
type Value struct {
	Num   float64
	Str   string
	Valid bool
}

// Number returns a present numeric cell.
func Number(f float64) Value { return Value{Num: f, Valid: true} }

// Text returns a present categorical cell.
func Text(s string) Value { return Value{Str: s, Valid: true} }

// Missing returns an absent cell.
func Missing() Value { return Value{} }

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []Value
}

// IsNumeric reports whether the column holds numeric cells.
func (c *Column) IsNumeric() bool { return c.Kind == KindNumeric }

// MissingCount returns the number of absent cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if !v.Valid {
			n++
		}
	}
	return n
}

// Floats returns the present values of a numeric column in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Valid {
			out = append(out, v.Num)
		}
	}
	return out
}

// DistinctCount returns the number of distinct present values.
func (c *Column) DistinctCount() int {
	if c.IsNumeric() {
		seen := make(map[float64]struct{})
		for _, v := range c.Values {
			if v.Valid {
				seen[v.Num] = struct{}{}
			}
		}
		return len(seen)
	}
	seen := make(map[string]struct{})
	for _, v := range c.Values {
		if v.Valid {
			seen[v.Str] = struct{}{}
		}
	}
	return len(seen)
}

// Format renders a present cell as text. Missing cells render as the empty string.
func (c *Column) Format(i int) string {
	v := c.Values[i]
	if !v.Valid {
		return ""
	}
	if c.IsNumeric() {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Str
}

// Table is an ordered collection of equal-length columns with unique names.
type Table struct {
	Columns []*Column
}

// NewTable builds a table and checks its invariants.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{Columns: columns}
	if err := t.Check(); err != nil {
		return nil, err
	}
	return t, nil
}

// Check verifies that column names are unique and all columns share one length.
func (t *Table) Check() error {
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if c.Kind != KindNumeric && c.Kind != KindCategorical {
			return fmt.Errorf("column %q: unknown kind %q", c.Name, c.Kind)
		}
		if i > 0 && len(c.Values) != len(t.Columns[0].Values) {
			return fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Values), len(t.Columns[0].Values))
		}
	}
	return nil
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Width returns the column count.
func (t *Table) Width() int { return len(t.Columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy that shares no cell storage with t.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		out.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return out
}

// Head returns a copy of the rows in [offset, offset+limit).
func (t *Table) Head(offset, limit int) *Table {
	rows := t.Rows()
	if offset < 0 {
		offset = 0
	}
	if offset > rows {
		offset = rows
	}
	end := offset + limit
	if limit < 0 || end > rows {
		end = rows
	}
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		values := make([]Value, end-offset)
		copy(values, c.Values[offset:end])
		out.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return out
}

// keepRows drops every row whose keep flag is false, in place.
func (t *Table) keepRows(keep []bool) {
	for _, c := range t.Columns {
		kept := c.Values[:0]
		for i, v := range c.Values {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		c.Values = kept
	}
}

// Records returns the rows as name → value maps. Missing cells become placeholder;
// present cells become float64 or string.
func (t *Table) Records(placeholder any) []map[string]any {
	rows := t.Rows()
	out := make([]map[string]any, rows)
	for r := 0; r < rows; r++ {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			v := c.Values[r]
			switch {
			case !v.Valid:
				rec[c.Name] = placeholder
			case c.IsNumeric():
				rec[c.Name] = v.Num
			default:
				rec[c.Name] = v.Str
			}
		}
		out[r] = rec
	}
	return out
}

// wireColumn is the serialized column shape used by session stores.
type wireColumn struct {
	Name   string     `json:"name"`
	Kind   ColumnKind `json:"kind"`
	Values []any      `json:"values"`
}

// MarshalJSON encodes the table column-wise with null for missing cells.
func (t *Table) MarshalJSON() ([]byte, error) {
	cols := make([]wireColumn, len(t.Columns))
	for i, c := range t.Columns {
		values := make([]any, len(c.Values))
		for j, v := range c.Values {
			switch {
			case !v.Valid:
				values[j] = nil
			case c.IsNumeric():
				values[j] = v.Num
			default:
				values[j] = v.Str
			}
		}
		cols[i] = wireColumn{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return json.Marshal(map[string]any{"columns": cols})
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	var wire struct {
		Columns []struct {
			Name   string            `json:"name"`
			Kind   ColumnKind        `json:"kind"`
			Values []json.RawMessage `json:"values"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	cols := make([]*Column, len(wire.Columns))
	for i, wc := range wire.Columns {
		col := &Column{Name: wc.Name, Kind: wc.Kind, Values: make([]Value, len(wc.Values))}
		for j, raw := range wc.Values {
			if string(raw) == "null" {
				continue
			}
			if col.IsNumeric() {
				var f float64
				if err := json.Unmarshal(raw, &f); err != nil {
					return fmt.Errorf("column %q row %d: %w", wc.Name, j, err)
				}
				col.Values[j] = Number(f)
			} else {
				var s string
				if err := json.Unmarshal(raw, &s); err != nil {
					return fmt.Errorf("column %q row %d: %w", wc.Name, j, err)
				}
				col.Values[j] = Text(s)
			}
		}
		cols[i] = col
	}
	t.Columns = cols
	return t.Check()
}
