package payload

import (
	"reflect"
	"sort"

	"github.com/mkpace/file-provider/errors"
)

// Column is a named sequence of cells of one type. A nil cell is null.
type Column struct {
	Name   string
	Type   Type
	Values []any
}

// Field describes one column of a schema.
type Field struct {
	Name string
	Type Type
}

// Schema is the ordered list of a table's column names and types.
type Schema []Field

// Lookup returns the type of the named field.
func (s Schema) Lookup(name string) (Type, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Type, true
		}
	}
	return TypeNull, false
}

// Table is an ordered collection of named columns. Columns may have
// unequal lengths; such a table is ragged.
//
// A Table is immutable after construction. Accessors return copies.
type Table struct {
	columns []Column
	index   map[string]int
}

// NewTable validates and normalizes columns into a Table.
//
// Names must be non-empty and unique. Cell values are normalized (Go
// integers become int64, float32 becomes float64). A column's Type may be
// left as TypeNull to infer it from the values; a declared type must agree
// with every non-null value, except that int64 values in a float64 column
// are widened.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, errors.New(errors.CodeValidation, "column name must not be empty")
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, errors.WithContext(
				errors.Newf(errors.CodeValidation, "duplicate column %q", c.Name),
				"column", c.Name,
			)
		}
		col, err := normalizeColumn(c)
		if err != nil {
			return nil, err
		}
		t.index[col.Name] = len(t.columns)
		t.columns = append(t.columns, col)
	}
	return t, nil
}

func normalizeColumn(c Column) (Column, error) {
	values := make([]any, len(c.Values))
	colType := c.Type
	for i, raw := range c.Values {
		v, ok := normalizeScalar(raw)
		if !ok {
			return Column{}, errors.WithContextMap(
				errors.Newf(errors.CodeValidation, "column %q row %d: unsupported value type %T", c.Name, i, raw),
				map[string]interface{}{"column": c.Name, "row": i},
			)
		}
		unified, ok := Unify(colType, typeOf(v))
		if !ok {
			return Column{}, errors.WithContextMap(
				errors.Newf(errors.CodeValidation, "column %q row %d: %s value in %s column", c.Name, i, typeOf(v), colType),
				map[string]interface{}{"column": c.Name, "row": i},
			)
		}
		colType = unified
		values[i] = v
	}
	for i := range values {
		values[i] = widen(values[i], colType)
	}
	return Column{Name: c.Name, Type: colType, Values: values}, nil
}

// FromRecords builds a table from row maps. Columns are the union of all
// keys in sorted order; a key missing from a record is null in that row.
func FromRecords(records []map[string]any) (*Table, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)

	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(names))
		for j, name := range names {
			row[j] = r[name]
		}
		rows[i] = row
	}
	return FromRows(names, rows)
}

// FromRows builds a table from a header and row-major cells. A row shorter
// than the header is padded with nulls; a longer row is an error.
func FromRows(names []string, rows [][]any) (*Table, error) {
	columns := make([]Column, len(names))
	for j, name := range names {
		columns[j] = Column{Name: name, Values: make([]any, len(rows))}
	}
	for i, row := range rows {
		if len(row) > len(names) {
			return nil, errors.WithContext(
				errors.Newf(errors.CodeValidation, "row %d has %d cells but there are %d columns", i, len(row), len(names)),
				"row", i,
			)
		}
		for j, v := range row {
			columns[j].Values[i] = v
		}
	}
	return NewTable(columns...)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// NumRows returns the length of the longest column.
func (t *Table) NumRows() int {
	n := 0
	for _, c := range t.columns {
		if len(c.Values) > n {
			n = len(c.Values)
		}
	}
	return n
}

// Ragged reports whether the columns have unequal lengths.
func (t *Table) Ragged() bool {
	for _, c := range t.columns {
		if len(c.Values) != len(t.columns[0].Values) {
			return true
		}
	}
	return false
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Schema returns the table's column names and types in order.
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.columns))
	for i, c := range t.columns {
		s[i] = Field{Name: c.Name, Type: c.Type}
	}
	return s
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return copyColumn(t.columns[i]), true
}

// Columns returns copies of all columns in order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	for i, c := range t.columns {
		out[i] = copyColumn(c)
	}
	return out
}

// Cell returns the value at row i of the named column. Cells past the end
// of a short column, and cells of unknown columns, are null.
func (t *Table) Cell(name string, i int) any {
	j, ok := t.index[name]
	if !ok {
		return nil
	}
	values := t.columns[j].Values
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

// Row returns row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		if i < len(c.Values) {
			row[j] = c.Values[i]
		}
	}
	return row
}

// Records returns one map per row keyed by column name. Every column
// appears in every map; null cells map to nil.
func (t *Table) Records() []map[string]any {
	n := t.NumRows()
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]any, len(t.columns))
		for _, c := range t.columns {
			var v any
			if i < len(c.Values) {
				v = c.Values[i]
			}
			rec[c.Name] = v
		}
		out[i] = rec
	}
	return out
}

// Equal reports whether both tables have the same columns, types, and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	return reflect.DeepEqual(t.columns, o.columns)
}

func copyColumn(c Column) Column {
	values := make([]any, len(c.Values))
	copy(values, c.Values)
	return Column{Name: c.Name, Type: c.Type, Values: values}
}
