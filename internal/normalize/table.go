// Package normalize projects raw upstream records onto a fixed column schema
// per report category. Rows keep upstream order and are never dropped; a
// field that fails to parse becomes nil and is reported on its row.
package normalize

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/krfin/pkg/models"
)

// ColumnKind is the parsed type of a column's values.
type ColumnKind string

const (
	KindText    ColumnKind = "text"    // string
	KindDecimal ColumnKind = "decimal" // decimal.Decimal
	KindInt     ColumnKind = "int"     // int64
	KindFloat   ColumnKind = "float"   // float64
	KindDate    ColumnKind = "date"    // string, YYYY-MM-DD
)

// Column describes one output column.
type Column struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Kind  ColumnKind `json:"kind"`
}

// ParseError reports a single field that could not be converted.
type ParseError struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d field %s: cannot parse %q: %s", e.Row, e.Field, e.Raw, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row is one normalized record. Values holds nil for missing or unparsable fields.
type Row struct {
	Values map[string]any `json:"values"`
	Errors []*ParseError  `json:"errors,omitempty"`
}

// Table is a normalized result.
type Table struct {
	Category models.ReportCategory `json:"category"`
	Columns  []Column              `json:"columns"`
	Rows     []Row                 `json:"rows"`
}

// Len returns the row count.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Labels returns the display header.
func (t Table) Labels() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Label
	}
	return out
}

// Keys returns the machine column names.
func (t Table) Keys() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Key
	}
	return out
}

// Cells formats row i in column order. Nil values become "".
func (t Table) Cells(i int) []string {
	row := t.Rows[i]
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = FormatValue(row.Values[c.Key])
	}
	return out
}

// ParseErrors returns every parse error in row order.
func (t Table) ParseErrors() []*ParseError {
	var out []*ParseError
	for _, r := range t.Rows {
		out = append(out, r.Errors...)
	}
	return out
}

// FormatValue renders a cell value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// builder fills rows for a fixed column set and collects parse errors.
type builder struct {
	table Table
	kinds map[string]ColumnKind
}

func newBuilder(category models.ReportCategory, cols []Column, capacity int) *builder {
	kinds := make(map[string]ColumnKind, len(cols))
	for _, c := range cols {
		kinds[c.Key] = c.Kind
	}
	return &builder{
		table: Table{Category: category, Columns: cols, Rows: make([]Row, 0, capacity)},
		kinds: kinds,
	}
}

// add appends a row from raw values keyed by column key. Raw values are
// strings or decoded JSON scalars.
func (b *builder) add(raw map[string]any) {
	idx := len(b.table.Rows)
	row := Row{Values: make(map[string]any, len(b.table.Columns))}
	for _, c := range b.table.Columns {
		v, err := convert(c.Kind, raw[c.Key])
		if err != nil {
			row.Errors = append(row.Errors, &ParseError{
				Row:    idx,
				Field:  c.Key,
				Raw:    fmt.Sprint(raw[c.Key]),
				Reason: err.Error(),
				Err:    err,
			})
			v = nil
		}
		row.Values[c.Key] = v
	}
	b.table.Rows = append(b.table.Rows, row)
}

func (b *builder) done() Table { return b.table }

// Empty returns a table with the given schema and no rows.
func Empty(category models.ReportCategory, cols []Column) Table {
	return newBuilder(category, cols, 0).done()
}
