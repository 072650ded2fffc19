package codec

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"io"
	"strconv"

	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
	"github.com/mkpace/file-provider/payload"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV encodes tables as comma-separated text with a header row.
//
// CSV stores no types. Decode returns every column as strings, and null
// cells come back as "". DecodeWithSchema restores the types of the
// columns it is told about and maps their empty cells to null. A hinted
// int64 column holding fractions decodes as float64, and one whose cells
// fit no hinted type decodes as strings, so a type conflict is left to
// the caller rather than failing the decode.
type CSV struct{}

var _ SchemaDecoder = CSV{}

// Format implements Codec.
func (CSV) Format() handle.Format { return handle.FormatCSV }

// Encode implements Codec. The empty payload and a table without columns
// encode to an empty file.
func (CSV) Encode(p payload.Payload) ([]byte, error) {
	if p.IsEmpty() {
		return []byte{}, nil
	}
	t, err := requireTable(handle.FormatCSV, p)
	if err != nil {
		return nil, err
	}
	if t.NumColumns() == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.ColumnNames()); err != nil {
		return nil, errors.Wrap(err, errors.CodeCodec, "write csv header")
	}

	record := make([]string, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for j, v := range t.Row(i) {
			record[j] = formatCell(v)
		}
		// encoding/csv writes a lone empty field as a blank line, which
		// readers skip.
		if len(record) == 1 && record[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrapf(err, errors.CodeCodec, "write csv row %d", i)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCodec, "flush csv")
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (c CSV) Decode(data []byte) (payload.Payload, error) {
	return c.DecodeWithSchema(data, nil)
}

// DecodeWithSchema implements SchemaDecoder. Columns absent from schema
// decode as strings and keep empty cells as "".
func (CSV) DecodeWithSchema(data []byte, schema payload.Schema) (payload.Payload, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return payload.Empty(), nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return payload.Payload{}, csvReadError(err)
	}

	cells := make([][]string, len(header))
	for {
		record, err := r.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return payload.Payload{}, csvReadError(err)
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return payload.Payload{}, decodeError(handle.FormatCSV, nil, "row has more fields than the header",
				map[string]interface{}{"line": line, "fields": len(record), "columns": len(header)})
		}
		for j := range header {
			raw := ""
			if j < len(record) {
				raw = record[j]
			}
			cells[j] = append(cells[j], raw)
		}
	}

	columns := make([]payload.Column, len(header))
	for j, name := range header {
		typ, typed := schema.Lookup(name)
		columns[j] = parseColumn(name, cells[j], typ, typed)
	}

	t, err := payload.NewTable(columns...)
	if err != nil {
		return payload.Payload{}, decodeError(handle.FormatCSV, err, "invalid csv header", nil)
	}
	return payload.Tabular(t), nil
}

// parseColumn converts a column of CSV fields. Untyped columns are kept
// verbatim. A typed column tries its hinted type, then float64 for an
// int64 hint, then falls back to strings.
func parseColumn(name string, raw []string, hint payload.Type, typed bool) payload.Column {
	if !typed {
		values := make([]any, len(raw))
		for i, s := range raw {
			values[i] = s
		}
		return payload.Column{Name: name, Type: payload.TypeString, Values: values}
	}

	candidates := []payload.Type{hint}
	if hint == payload.TypeInt64 {
		candidates = append(candidates, payload.TypeFloat64)
	}
	for _, typ := range candidates {
		if values, ok := parseCells(raw, typ); ok {
			return payload.Column{Name: name, Type: typ, Values: values}
		}
	}
	values, _ := parseCells(raw, payload.TypeString)
	return payload.Column{Name: name, Type: payload.TypeString, Values: values}
}

// parseCells parses every field as t, mapping empty fields to null.
func parseCells(raw []string, t payload.Type) ([]any, bool) {
	values := make([]any, len(raw))
	for i, s := range raw {
		if s == "" {
			continue
		}
		var (
			v   any
			err error
		)
		switch t {
		case payload.TypeInt64:
			v, err = strconv.ParseInt(s, 10, 64)
		case payload.TypeFloat64:
			v, err = strconv.ParseFloat(s, 64)
		case payload.TypeBool:
			v, err = strconv.ParseBool(s)
		default:
			v = s
		}
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func csvReadError(err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return decodeError(handle.FormatCSV, err, "malformed csv",
			map[string]interface{}{"line": pe.Line, "column": pe.Column})
	}
	return decodeError(handle.FormatCSV, err, "malformed csv", nil)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
