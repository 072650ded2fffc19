// Package payload models the data a file holds: either a tabular dataset
// or a JSON-compatible document tree, and defines how an update merges new
// data into what is already stored.
package payload

import (
	"reflect"
	"strconv"

	"github.com/mkpace/file-provider/errors"
)

// Shape says which of the payload variants is populated.
type Shape int

const (
	// ShapeEmpty is what an empty file decodes to.
	ShapeEmpty Shape = iota
	ShapeTable
	ShapeDocument
)

func (s Shape) String() string {
	switch s {
	case ShapeTable:
		return "table"
	case ShapeDocument:
		return "document"
	default:
		return "empty"
	}
}

// Payload holds exactly one of a table or a document. The zero value is
// the empty payload.
type Payload struct {
	shape Shape
	table *Table
	doc   any
}

// Empty returns the empty payload.
func Empty() Payload { return Payload{} }

// Tabular wraps a table. A nil table yields the empty payload.
func Tabular(t *Table) Payload {
	if t == nil {
		return Payload{}
	}
	return Payload{shape: ShapeTable, table: t}
}

// Document wraps a JSON-compatible value tree. Maps must have string keys.
// Integers become int64 and float32 becomes float64; slices and maps of
// concrete types are converted to []any and map[string]any.
func Document(v any) (Payload, error) {
	doc, err := normalizeDocument(v, "$")
	if err != nil {
		return Payload{}, err
	}
	return Payload{shape: ShapeDocument, doc: doc}, nil
}

// Shape returns which variant is populated.
func (p Payload) Shape() Shape { return p.shape }

// IsEmpty reports whether p is the empty payload.
func (p Payload) IsEmpty() bool { return p.shape == ShapeEmpty }

// Table returns the table when p is tabular.
func (p Payload) Table() (*Table, bool) {
	return p.table, p.shape == ShapeTable
}

// Document returns the document when p is a document.
func (p Payload) Document() (any, bool) {
	return p.doc, p.shape == ShapeDocument
}

// Equal reports whether two payloads have the same shape and content.
func (p Payload) Equal(o Payload) bool {
	if p.shape != o.shape {
		return false
	}
	switch p.shape {
	case ShapeTable:
		return p.table.Equal(o.table)
	case ShapeDocument:
		return reflect.DeepEqual(p.doc, o.doc)
	default:
		return true
	}
}

func normalizeDocument(v any, path string) (any, error) {
	if s, ok := normalizeScalar(v); ok {
		return s, nil
	}

	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			n, err := normalizeDocument(child, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, child := range x {
			n, err := normalizeDocument(child, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			n, err := normalizeDocument(rv.Index(i).Interface(), indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			n, err := normalizeDocument(iter.Value().Interface(), path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}

	return nil, errors.WithContext(
		errors.Newf(errors.CodeValidation, "value at %s has unsupported type %T", path, v),
		"path", path,
	)
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
