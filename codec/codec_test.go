package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
	"github.com/mkpace/file-provider/payload"
)

func peopleTable(t *testing.T) *payload.Table {
	t.Helper()
	tbl, err := payload.NewTable(
		payload.Column{Name: "name", Values: []any{"Alice", "Bob", "Charlie"}},
		payload.Column{Name: "age", Values: []any{30, 25, nil}},
		payload.Column{Name: "score", Values: []any{1.0, 2.5, 3.25}},
		payload.Column{Name: "active", Values: []any{true, false, true}},
	)
	require.NoError(t, err)
	return tbl
}

func TestRegistry(t *testing.T) {
	r := Default()
	for _, f := range handle.Formats() {
		c, err := r.Lookup(f)
		require.NoError(t, err)
		assert.Equal(t, f, c.Format())
	}

	empty := NewRegistry()
	_, err := empty.Lookup(handle.FormatCSV)
	require.True(t, errors.IsValidation(err))

	empty.Register(JSON{})
	_, err = empty.Lookup(handle.FormatJSON)
	require.NoError(t, err)
}

func TestTabularFormatsRejectDocuments(t *testing.T) {
	doc, err := payload.Document(map[string]any{"a": 1})
	require.NoError(t, err)

	for _, c := range []Codec{CSV{}, Parquet{}} {
		t.Run(c.Format().String(), func(t *testing.T) {
			_, err := c.Encode(doc)
			require.True(t, errors.IsCodec(err), "got %v", err)
		})
	}
}

func TestDecode_UsesSchemaWhenSupported(t *testing.T) {
	data := []byte("id,name\n1,a\n")
	schema := payload.Schema{{Name: "id", Type: payload.TypeInt64}}

	p, err := Decode(CSV{}, data, schema)
	require.NoError(t, err)
	tbl, _ := p.Table()
	assert.Equal(t, int64(1), tbl.Cell("id", 0))

	p, err = Decode(CSV{}, data, nil)
	require.NoError(t, err)
	tbl, _ = p.Table()
	assert.Equal(t, "1", tbl.Cell("id", 0))
}

func TestSnippet(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz0123456789")
	assert.Equal(t, "0123456789abcdef", snippet(data, 0))
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz012345", snippet(data, 26))
	assert.Equal(t, "", snippet(nil, 0))
}
