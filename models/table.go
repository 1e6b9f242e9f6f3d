package models

import (
	"math"
	"strconv"
	"strings"
)

// Row is one listing record keyed by column name. A nil cell (or a NaN
// float) is the missing marker.
type Row map[string]any

// Table is the in-memory listing dataset passed through the cleaning stages.
// It has a single owner and is mutated in place.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given column order.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether name is part of the schema.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends name to the schema if it is not already there.
// Existing rows are left untouched; absent cells read as missing.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// DropColumn removes name from the schema and from every row.
func (t *Table) DropColumn(name string) {
	cols := t.Columns[:0]
	for _, c := range t.Columns {
		if c != name {
			cols = append(cols, c)
		}
	}
	t.Columns = cols
	for _, r := range t.Rows {
		delete(r, name)
	}
}

// Append adds a row. Columns the row carries that the schema lacks are added.
func (t *Table) Append(r Row) {
	for k := range r {
		t.AddColumn(k)
	}
	t.Rows = append(t.Rows, r)
}

// IsMissing reports whether v is the missing marker.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// Float converts a cell to a float64. Strings are parsed; anything that does
// not parse is reported as missing.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Text renders a non-missing cell as a string.
func Text(v any) (string, bool) {
	if IsMissing(v) {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}
