package codec

import (
	"bytes"
	stderrors "errors"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
	"github.com/mkpace/file-provider/payload"
)

// JSON encodes tables as an array of row objects and documents as-is.
//
// Decode infers the shape: a non-empty array of objects whose fields are
// all scalars, with one type per field, is a table; anything else is a
// document. A document with that shape, such as [{"a":1}], therefore
// decodes as a table and does not compare equal to the document it was
// encoded from. Integer literals decode as int64 and other numbers as
// float64.
// Float cells always encode with a fraction or exponent so they decode as
// float64 again. Object keys in documents are written in sorted order.
type JSON struct{}

// Format implements Codec.
func (JSON) Format() handle.Format { return handle.FormatJSON }

// Encode implements Codec. The empty payload encodes to an empty file.
func (JSON) Encode(p payload.Payload) ([]byte, error) {
	var (
		buf []byte
		err error
	)
	switch p.Shape() {
	case payload.ShapeEmpty:
		return []byte{}, nil
	case payload.ShapeTable:
		t, _ := p.Table()
		buf, err = appendTable(nil, t)
	default:
		doc, _ := p.Document()
		buf, err = appendValue(nil, doc)
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode implements Codec. Empty or whitespace-only input decodes to the
// empty payload.
func (JSON) Decode(data []byte) (payload.Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return payload.Empty(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return payload.Payload{}, jsonSyntaxError(data, err)
	}
	var extra any
	if err := dec.Decode(&extra); !stderrors.Is(err, io.EOF) {
		return payload.Payload{}, decodeError(handle.FormatJSON, err, "unexpected data after top-level value", nil)
	}

	if t, ok := detectTable(data); ok {
		return payload.Tabular(t), nil
	}

	p, err := payload.Document(convertNumbers(v))
	if err != nil {
		return payload.Payload{}, decodeError(handle.FormatJSON, err, "unsupported json value", nil)
	}
	return p, nil
}

func jsonSyntaxError(data []byte, err error) error {
	var se *json.SyntaxError
	if stderrors.As(err, &se) {
		return decodeError(handle.FormatJSON, err, "malformed json",
			map[string]interface{}{"offset": se.Offset, "snippet": snippet(data, se.Offset)})
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, io.EOF) {
		end := int64(len(data))
		return decodeError(handle.FormatJSON, err, "truncated json",
			map[string]interface{}{"offset": end, "snippet": snippet(data, end)})
	}
	return decodeError(handle.FormatJSON, err, "malformed json", nil)
}

// detectTable reports whether data is an array of flat row objects and
// builds the table from it, keeping field order of first appearance.
func detectTable(data []byte) (*payload.Table, bool) {
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, false
	}
	rows := root.Array()
	if len(rows) == 0 {
		return nil, false
	}

	var columns []payload.Column
	index := make(map[string]int)
	for i, row := range rows {
		if !row.IsObject() {
			return nil, false
		}
		flat := true
		row.ForEach(func(key, value gjson.Result) bool {
			cell, ok := scalarCell(value)
			if !ok {
				flat = false
				return false
			}
			name := key.String()
			j, seen := index[name]
			if !seen {
				j = len(columns)
				index[name] = j
				columns = append(columns, payload.Column{Name: name, Values: make([]any, len(rows))})
			}
			columns[j].Values[i] = cell
			return true
		})
		if !flat {
			return nil, false
		}
	}
	if len(columns) == 0 {
		return nil, false
	}

	t, err := payload.NewTable(columns...)
	if err != nil {
		return nil, false
	}
	return t, true
}

func scalarCell(v gjson.Result) (any, bool) {
	switch v.Type {
	case gjson.Null:
		return nil, true
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	case gjson.String:
		return v.Str, true
	case gjson.Number:
		return parseNumber(v.Raw), true
	default:
		return nil, false
	}
}

func parseNumber(raw string) any {
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
	}
	f, _ := strconv.ParseFloat(raw, 64)
	return f
}

func convertNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		return parseNumber(string(x))
	case map[string]any:
		for k, child := range x {
			x[k] = convertNumbers(child)
		}
		return x
	case []any:
		for i, child := range x {
			x[i] = convertNumbers(child)
		}
		return x
	default:
		return v
	}
}

func appendTable(buf []byte, t *payload.Table) ([]byte, error) {
	columns := t.Columns()
	buf = append(buf, '[')
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '{')
		first := true
		for _, c := range columns {
			if i >= len(c.Values) {
				continue
			}
			if !first {
				buf = append(buf, ',')
			}
			first = false
			var err error
			if buf, err = appendString(buf, c.Name); err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			if buf, err = appendValue(buf, c.Values[i]); err != nil {
				return nil, errors.WithContextMap(err, map[string]interface{}{"column": c.Name, "row": i})
			}
		}
		buf = append(buf, '}')
	}
	return append(buf, ']'), nil
}

func appendValue(buf []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		return strconv.AppendBool(buf, x), nil
	case int64:
		return strconv.AppendInt(buf, x, 10), nil
	case float64:
		return appendFloat(buf, x)
	case string:
		return appendString(buf, x)
	case []any:
		buf = append(buf, '[')
		for i, child := range x {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendValue(buf, child); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendString(buf, k); err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			if buf, err = appendValue(buf, x[k]); err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	default:
		return nil, errors.WithContext(
			errors.Newf(errors.CodeCodec, "cannot encode %T as json", v),
			"format", string(handle.FormatJSON),
		)
	}
}

func appendFloat(buf []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeCodec, "json cannot represent %v", f),
			"format", string(handle.FormatJSON),
		)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	buf = append(buf, s...)
	if !strings.ContainsAny(s, ".eE") {
		buf = append(buf, ".0"...)
	}
	return buf, nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.WithContext(
			errors.Wrap(err, errors.CodeCodec, "encode json string"),
			"format", string(handle.FormatJSON),
		)
	}
	return append(buf, b...), nil
}
