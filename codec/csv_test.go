package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/payload"
)

func TestCSV_Encode(t *testing.T) {
	data, err := CSV{}.Encode(payload.Tabular(peopleTable(t)))
	require.NoError(t, err)

	want := "name,age,score,active\n" +
		"Alice,30,1,true\n" +
		"Bob,25,2.5,false\n" +
		"Charlie,,3.25,true\n"
	assert.Equal(t, want, string(data))
}

func TestCSV_RoundTripStrings(t *testing.T) {
	tbl := peopleTable(t)
	data, err := CSV{}.Encode(payload.Tabular(tbl))
	require.NoError(t, err)

	p, err := CSV{}.Decode(data)
	require.NoError(t, err)
	got, ok := p.Table()
	require.True(t, ok)

	require.Equal(t, tbl.ColumnNames(), got.ColumnNames())
	for i := 0; i < tbl.NumRows(); i++ {
		for _, name := range tbl.ColumnNames() {
			assert.Equal(t, formatCell(tbl.Cell(name, i)), got.Cell(name, i), "row %d column %s", i, name)
		}
	}
}

func TestCSV_DecodeWithSchema(t *testing.T) {
	tbl := peopleTable(t)
	data, err := CSV{}.Encode(payload.Tabular(tbl))
	require.NoError(t, err)

	p, err := CSV{}.DecodeWithSchema(data, tbl.Schema())
	require.NoError(t, err)
	got, _ := p.Table()

	assert.True(t, tbl.Equal(got), "got %v", got.Records())
}

func TestCSV_DecodeWithSchema_Hints(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		schema payload.Schema
		typ    payload.Type
		values []any
	}{
		{
			name:   "int64",
			input:  "id\n1\n\n2\n",
			schema: payload.Schema{{Name: "id", Type: payload.TypeInt64}},
			typ:    payload.TypeInt64,
			values: []any{int64(1), int64(2)},
		},
		{
			name:   "int64 widens to float64",
			input:  "score\n1.5\n2\n",
			schema: payload.Schema{{Name: "score", Type: payload.TypeInt64}},
			typ:    payload.TypeFloat64,
			values: []any{1.5, 2.0},
		},
		{
			name:   "unparsable falls back to string",
			input:  "id\nabc\n\"\"\n",
			schema: payload.Schema{{Name: "id", Type: payload.TypeInt64}},
			typ:    payload.TypeString,
			values: []any{"abc", nil},
		},
		{
			name:   "bool",
			input:  "ok\ntrue\nfalse\n",
			schema: payload.Schema{{Name: "ok", Type: payload.TypeBool}},
			typ:    payload.TypeBool,
			values: []any{true, false},
		},
		{
			name:   "column outside schema",
			input:  "id,note\n1,\n",
			schema: payload.Schema{{Name: "id", Type: payload.TypeInt64}},
			typ:    payload.TypeString,
			values: []any{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CSV{}.DecodeWithSchema([]byte(tt.input), tt.schema)
			require.NoError(t, err)
			tbl, ok := p.Table()
			require.True(t, ok)

			last := tbl.ColumnNames()[tbl.NumColumns()-1]
			typ, _ := tbl.Schema().Lookup(last)
			assert.Equal(t, tt.typ, typ)
			require.Equal(t, len(tt.values), tbl.NumRows())
			for i, want := range tt.values {
				assert.Equal(t, want, tbl.Cell(last, i), "row %d", i)
			}
		})
	}
}

func TestCSV_SingleColumnEmptyCells(t *testing.T) {
	tbl, err := payload.FromRows([]string{"note"}, [][]any{{"a"}, {nil}, {""}, {"b"}})
	require.NoError(t, err)

	data, err := CSV{}.Encode(payload.Tabular(tbl))
	require.NoError(t, err)
	assert.Equal(t, "note\na\n\"\"\n\"\"\nb\n", string(data))

	p, err := CSV{}.Decode(data)
	require.NoError(t, err)
	got, _ := p.Table()
	require.Equal(t, 4, got.NumRows())
	assert.Equal(t, []any{"a", "", "", "b"}, []any{got.Cell("note", 0), got.Cell("note", 1), got.Cell("note", 2), got.Cell("note", 3)})

	p, err = CSV{}.DecodeWithSchema(data, tbl.Schema())
	require.NoError(t, err)
	got, _ = p.Table()
	assert.Equal(t, 4, got.NumRows())
	assert.Nil(t, got.Cell("note", 1))
}

func TestCSV_Decode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		columns []string
		rows    [][]any
		empty   bool
		wantErr bool
	}{
		{name: "empty file", input: "", empty: true},
		{name: "whitespace", input: " \n\n", empty: true},
		{name: "header only", input: "a,b\n", columns: []string{"a", "b"}},
		{name: "byte order mark", input: "\xEF\xBB\xBFa\n1\n", columns: []string{"a"}, rows: [][]any{{"1"}}},
		{name: "short row padded", input: "a,b\n1\n", columns: []string{"a", "b"}, rows: [][]any{{"1", ""}}},
		{name: "quoted fields", input: "a\n\"x,y\"\n", columns: []string{"a"}, rows: [][]any{{"x,y"}}},
		{name: "long row", input: "a\n1,2\n", wantErr: true},
		{name: "bare quote", input: "a\nx\"y\n", wantErr: true},
		{name: "duplicate header", input: "a,a\n1,2\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CSV{}.Decode([]byte(tt.input))
			if tt.wantErr {
				require.True(t, errors.IsCodec(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.empty {
				require.True(t, p.IsEmpty())
				return
			}

			tbl, ok := p.Table()
			require.True(t, ok)
			require.Equal(t, tt.columns, tbl.ColumnNames())
			require.Equal(t, len(tt.rows), tbl.NumRows())
			for i, row := range tt.rows {
				assert.Equal(t, row, tbl.Row(i))
			}
		})
	}
}

func TestCSV_EncodeEmpty(t *testing.T) {
	data, err := CSV{}.Encode(payload.Empty())
	require.NoError(t, err)
	assert.Empty(t, data)

	tbl, err := payload.NewTable()
	require.NoError(t, err)
	data, err = CSV{}.Encode(payload.Tabular(tbl))
	require.NoError(t, err)
	assert.Empty(t, data)
}
