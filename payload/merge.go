package payload

import (
	"math"
	"strconv"

	"github.com/mkpace/file-provider/errors"
)

// MergeOptions control how Merge combines tables.
type MergeOptions struct {
	// KeyColumn switches table merges from append to upsert-by-key.
	KeyColumn string
}

// Merge combines the stored payload with an incoming one:
//
//   - empty stored payload: the incoming payload
//   - table with table: MergeTables
//   - object with object: shallow merge, incoming keys win
//   - anything else: a single array holding the stored elements followed by
//     the incoming ones; tables contribute their rows as objects
func Merge(existing, incoming Payload, opts MergeOptions) (Payload, error) {
	switch {
	case existing.IsEmpty():
		return incoming, nil
	case incoming.IsEmpty():
		return existing, nil
	}

	if existing.shape == ShapeTable && incoming.shape == ShapeTable {
		t, err := MergeTables(existing.table, incoming.table, opts.KeyColumn)
		if err != nil {
			return Payload{}, err
		}
		return Tabular(t), nil
	}

	if a, ok := existing.doc.(map[string]any); ok {
		if b, ok := incoming.doc.(map[string]any); ok {
			merged := make(map[string]any, len(a)+len(b))
			for k, v := range a {
				merged[k] = v
			}
			for k, v := range b {
				merged[k] = v
			}
			return Payload{shape: ShapeDocument, doc: merged}, nil
		}
	}

	out := append(elements(existing), elements(incoming)...)
	return Payload{shape: ShapeDocument, doc: out}, nil
}

func elements(p Payload) []any {
	switch p.shape {
	case ShapeTable:
		records := p.table.Records()
		out := make([]any, len(records))
		for i, r := range records {
			out[i] = r
		}
		return out
	case ShapeDocument:
		if arr, ok := p.doc.([]any); ok {
			out := make([]any, len(arr))
			copy(out, arr)
			return out
		}
		return []any{p.doc}
	default:
		return nil
	}
}

// MergeTables merges incoming rows into existing.
//
// The result's columns are the union of both schemas, existing columns
// first. Column types unify (see Unify); a column whose types do not unify
// is a validation error. Cells a row lacks are null.
//
// With an empty key the incoming rows are appended. Otherwise an incoming
// row whose key matches an existing row replaces the first such row in
// place, and unmatched rows are appended in order; when the incoming table
// repeats a key, the later row wins. Null keys never match. Keys compare by
// value, so the string "2", the int64 2, and the float64 2.0 are equal.
func MergeTables(existing, incoming *Table, key string) (*Table, error) {
	schema, err := unionSchema(existing.Schema(), incoming.Schema())
	if err != nil {
		return nil, err
	}
	if key != "" {
		if _, ok := incoming.index[key]; !ok {
			return nil, errors.WithContext(
				errors.Newf(errors.CodeValidation, "key column %q missing from incoming rows", key),
				"column", key,
			)
		}
	}

	rows := make([][]any, 0, existing.NumRows()+incoming.NumRows())
	byKey := make(map[string]int)
	for i := 0; i < existing.NumRows(); i++ {
		rows = append(rows, projectRow(existing, i, schema))
		if key == "" {
			continue
		}
		if k, ok := keyString(existing.Cell(key, i)); ok {
			if _, dup := byKey[k]; !dup {
				byKey[k] = len(rows) - 1
			}
		}
	}

	for i := 0; i < incoming.NumRows(); i++ {
		row := projectRow(incoming, i, schema)
		if key == "" {
			rows = append(rows, row)
			continue
		}
		k, ok := keyString(incoming.Cell(key, i))
		if !ok {
			rows = append(rows, row)
			continue
		}
		if at, found := byKey[k]; found {
			rows[at] = row
			continue
		}
		byKey[k] = len(rows)
		rows = append(rows, row)
	}

	columns := make([]Column, len(schema))
	for j, f := range schema {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[j]
		}
		columns[j] = Column{Name: f.Name, Type: f.Type, Values: values}
	}
	return NewTable(columns...)
}

func unionSchema(a, b Schema) (Schema, error) {
	out := make(Schema, len(a), len(a)+len(b))
	copy(out, a)
	pos := make(map[string]int, len(a))
	for i, f := range a {
		pos[f.Name] = i
	}
	for _, f := range b {
		i, ok := pos[f.Name]
		if !ok {
			pos[f.Name] = len(out)
			out = append(out, f)
			continue
		}
		t, ok := Unify(out[i].Type, f.Type)
		if !ok {
			return nil, errors.WithContext(
				errors.Newf(errors.CodeValidation, "column %q is %s in stored rows but %s in incoming rows",
					f.Name, out[i].Type, f.Type),
				"column", f.Name,
			)
		}
		out[i].Type = t
	}
	return out, nil
}

func projectRow(t *Table, i int, schema Schema) []any {
	row := make([]any, len(schema))
	for j, f := range schema {
		row[j] = widen(t.Cell(f.Name, i), f.Type)
	}
	return row
}

func keyString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
