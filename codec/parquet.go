package codec

import (
	"bytes"
	stderrors "errors"
	"io"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
	"github.com/mkpace/file-provider/payload"
)

// columnsMetadataKey names the key/value metadata entry recording column
// order and logical types. Parquet groups order their fields by name, so
// the original order would otherwise be lost.
const columnsMetadataKey = "file-provider.columns"

const readBatchSize = 256

type columnMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Parquet encodes tables as a single-row-group Parquet file with one
// optional column per table column. Types round-trip exactly.
//
// Files written elsewhere can be read as long as their columns are flat;
// column types then follow the physical schema.
type Parquet struct{}

// Format implements Codec.
func (Parquet) Format() handle.Format { return handle.FormatParquet }

// Encode implements Codec. Ragged tables and tables without columns are
// rejected with a validation error.
func (Parquet) Encode(p payload.Payload) ([]byte, error) {
	t, err := requireTable(handle.FormatParquet, p)
	if err != nil {
		return nil, err
	}
	if t.NumColumns() == 0 {
		return nil, errors.WithContext(
			errors.New(errors.CodeValidation, "parquet requires at least one column"),
			"format", string(handle.FormatParquet),
		)
	}
	if t.Ragged() {
		lengths := make(map[string]interface{}, t.NumColumns())
		for _, c := range t.Columns() {
			lengths[c.Name] = len(c.Values)
		}
		return nil, errors.WithContextMap(
			errors.New(errors.CodeValidation, "parquet cannot store ragged columns"),
			map[string]interface{}{"format": string(handle.FormatParquet), "lengths": lengths},
		)
	}

	group := parquet.Group{}
	metas := make([]columnMeta, 0, t.NumColumns())
	for _, f := range t.Schema() {
		group[f.Name] = parquet.Optional(leafNode(f.Type))
		metas = append(metas, columnMeta{Name: f.Name, Type: f.Type.String()})
	}
	schema := parquet.NewSchema("file_provider", group)

	meta, err := json.Marshal(metas)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "marshal parquet column metadata")
	}

	columns := t.Columns()
	leafIndex := make([]int, len(columns))
	for j, c := range columns {
		leaf, ok := schema.Lookup(c.Name)
		if !ok {
			return nil, errors.Newf(errors.CodeInternal, "column %q missing from parquet schema", c.Name)
		}
		leafIndex[j] = leaf.ColumnIndex
	}

	rows := make([]parquet.Row, t.NumRows())
	for i := range rows {
		row := make(parquet.Row, len(columns))
		for j, c := range columns {
			row[leafIndex[j]] = parquetValue(c.Values[i], leafIndex[j])
		}
		rows[i] = row
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, schema, parquet.KeyValueMetadata(columnsMetadataKey, string(meta)))
	if _, err := w.WriteRows(rows); err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeCodec, "write parquet rows"),
			"format", string(handle.FormatParquet))
	}
	if err := w.Close(); err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeCodec, "finish parquet file"),
			"format", string(handle.FormatParquet))
	}
	return buf.Bytes(), nil
}

func leafNode(t payload.Type) parquet.Node {
	switch t {
	case payload.TypeInt64:
		return parquet.Int(64)
	case payload.TypeFloat64:
		return parquet.Leaf(parquet.DoubleType)
	case payload.TypeBool:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}

func parquetValue(v any, column int) parquet.Value {
	switch x := v.(type) {
	case string:
		return parquet.ByteArrayValue([]byte(x)).Level(0, 1, column)
	case int64:
		return parquet.Int64Value(x).Level(0, 1, column)
	case float64:
		return parquet.DoubleValue(x).Level(0, 1, column)
	case bool:
		return parquet.BooleanValue(x).Level(0, 1, column)
	default:
		return parquet.NullValue().Level(0, 0, column)
	}
}

// Decode implements Codec.
func (Parquet) Decode(data []byte) (payload.Payload, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return payload.Payload{}, decodeError(handle.FormatParquet, err, "not a parquet file",
			map[string]interface{}{"offset": int64(0), "snippet": snippet(data, 0)})
	}

	fields, err := storedFields(f)
	if err != nil {
		return payload.Payload{}, err
	}

	byIndex := make(map[int]int, len(fields))
	for pos, fld := range fields {
		leaf, ok := f.Schema().Lookup(fld.Name)
		if !ok {
			return payload.Payload{}, decodeError(handle.FormatParquet, nil, "column metadata names an unknown column",
				map[string]interface{}{"column": fld.Name})
		}
		byIndex[leaf.ColumnIndex] = pos
	}

	values := make([][]any, len(fields))
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg, byIndex, values); err != nil {
			return payload.Payload{}, err
		}
	}

	columns := make([]payload.Column, len(fields))
	for pos, fld := range fields {
		columns[pos] = payload.Column{Name: fld.Name, Type: fld.Type, Values: values[pos]}
	}
	t, err := payload.NewTable(columns...)
	if err != nil {
		return payload.Payload{}, decodeError(handle.FormatParquet, err, "parquet columns do not match their types", nil)
	}
	return payload.Tabular(t), nil
}

// storedFields returns the table schema, preferring the recorded metadata
// and falling back to the physical schema for foreign files.
func storedFields(f *parquet.File) (payload.Schema, error) {
	if raw, ok := f.Lookup(columnsMetadataKey); ok {
		var metas []columnMeta
		if err := json.Unmarshal([]byte(raw), &metas); err != nil {
			return nil, decodeError(handle.FormatParquet, err, "corrupt column metadata", nil)
		}
		out := make(payload.Schema, len(metas))
		for i, m := range metas {
			typ, err := payload.ParseType(m.Type)
			if err != nil {
				return nil, decodeError(handle.FormatParquet, err, "corrupt column metadata",
					map[string]interface{}{"column": m.Name})
			}
			out[i] = payload.Field{Name: m.Name, Type: typ}
		}
		return out, nil
	}

	var out payload.Schema
	for _, fld := range f.Schema().Fields() {
		if !fld.Leaf() || fld.Repeated() {
			return nil, decodeError(handle.FormatParquet, nil, "nested and repeated columns are not supported",
				map[string]interface{}{"column": fld.Name()})
		}
		typ, ok := typeForKind(fld.Type().Kind())
		if !ok {
			return nil, decodeError(handle.FormatParquet, nil, "unsupported physical type",
				map[string]interface{}{"column": fld.Name(), "kind": fld.Type().Kind().String()})
		}
		out = append(out, payload.Field{Name: fld.Name(), Type: typ})
	}
	return out, nil
}

func typeForKind(k parquet.Kind) (payload.Type, bool) {
	switch k {
	case parquet.Boolean:
		return payload.TypeBool, true
	case parquet.Int32, parquet.Int64:
		return payload.TypeInt64, true
	case parquet.Float, parquet.Double:
		return payload.TypeFloat64, true
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return payload.TypeString, true
	default:
		return payload.TypeNull, false
	}
}

func readRowGroup(rg parquet.RowGroup, byIndex map[int]int, values [][]any) error {
	rows := rg.Rows()
	defer rows.Close()

	buf := make([]parquet.Row, readBatchSize)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, v := range row {
				pos, ok := byIndex[v.Column()]
				if !ok {
					continue
				}
				cell, cerr := cellValue(v)
				if cerr != nil {
					return cerr
				}
				values[pos] = append(values[pos], cell)
			}
		}
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return decodeError(handle.FormatParquet, err, "read parquet rows", nil)
		}
	}
}

// cellValue copies v out of the reader's buffers.
func cellValue(v parquet.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean(), nil
	case parquet.Int32:
		return int64(v.Int32()), nil
	case parquet.Int64:
		return v.Int64(), nil
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Double:
		return v.Double(), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray()), nil
	default:
		return nil, decodeError(handle.FormatParquet, nil, "unsupported parquet value kind",
			map[string]interface{}{"kind": v.Kind().String(), "column": v.Column()})
	}
}
