package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpace/file-provider/errors"
)

func mustTable(t *testing.T, names []string, rows ...[]any) *Table {
	t.Helper()
	tbl, err := FromRows(names, rows)
	require.NoError(t, err)
	return tbl
}

func mustDocument(t *testing.T, v any) Payload {
	t.Helper()
	p, err := Document(v)
	require.NoError(t, err)
	return p
}

func TestMergeTables_Upsert(t *testing.T) {
	existing := mustTable(t, []string{"id", "value"},
		[]any{1, "one"},
		[]any{2, "two"},
		[]any{3, "three"},
	)
	incoming := mustTable(t, []string{"id", "value"},
		[]any{2, "TWO"},
		[]any{4, "four"},
	)

	got, err := MergeTables(existing, incoming, "id")
	require.NoError(t, err)

	want := mustTable(t, []string{"id", "value"},
		[]any{1, "one"},
		[]any{2, "TWO"},
		[]any{3, "three"},
		[]any{4, "four"},
	)
	assert.True(t, want.Equal(got), "got %v", got.Records())
}

func TestMergeTables_Append(t *testing.T) {
	existing := mustTable(t, []string{"id"}, []any{1}, []any{2})
	incoming := mustTable(t, []string{"id"}, []any{2}, []any{3})

	got, err := MergeTables(existing, incoming, "")
	require.NoError(t, err)

	col, _ := got.Column("id")
	assert.Equal(t, []any{int64(1), int64(2), int64(2), int64(3)}, col.Values)
}

func TestMergeTables_ColumnUnion(t *testing.T) {
	existing := mustTable(t, []string{"id", "a"}, []any{1, "x"}, []any{2, "y"})
	incoming := mustTable(t, []string{"b", "id"}, []any{true, 2}, []any{false, 3})

	got, err := MergeTables(existing, incoming, "id")
	require.NoError(t, err)

	require.Equal(t, []string{"id", "a", "b"}, got.ColumnNames())
	assert.Equal(t, []any{int64(1), "x", nil}, got.Row(0))
	assert.Equal(t, []any{int64(2), nil, true}, got.Row(1), "replaced row takes nulls for absent columns")
	assert.Equal(t, []any{int64(3), nil, false}, got.Row(2))
}

func TestMergeTables_KeyMatching(t *testing.T) {
	t.Run("string keys match numeric keys", func(t *testing.T) {
		existing := mustTable(t, []string{"id", "v"}, []any{"1", "a"}, []any{"2", "b"})
		incoming := mustTable(t, []string{"id", "v"}, []any{"2", "B"})

		got, err := MergeTables(existing, incoming, "id")
		require.NoError(t, err)
		assert.Equal(t, 2, got.NumRows())
		assert.Equal(t, "B", got.Cell("v", 1))
	})

	t.Run("int and float keys match", func(t *testing.T) {
		existing := mustTable(t, []string{"id", "v"}, []any{1.0, "a"})
		incoming := mustTable(t, []string{"id", "v"}, []any{1, "b"})

		got, err := MergeTables(existing, incoming, "id")
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumRows())
		assert.Equal(t, float64(1), got.Cell("id", 0))
	})

	t.Run("null keys never match", func(t *testing.T) {
		existing := mustTable(t, []string{"id", "v"}, []any{nil, "a"})
		incoming := mustTable(t, []string{"id", "v"}, []any{nil, "b"})

		got, err := MergeTables(existing, incoming, "id")
		require.NoError(t, err)
		assert.Equal(t, 2, got.NumRows())
	})

	t.Run("later incoming duplicate wins", func(t *testing.T) {
		existing := mustTable(t, []string{"id", "v"}, []any{1, "a"})
		incoming := mustTable(t, []string{"id", "v"}, []any{5, "x"}, []any{5, "y"})

		got, err := MergeTables(existing, incoming, "id")
		require.NoError(t, err)
		assert.Equal(t, 2, got.NumRows())
		assert.Equal(t, "y", got.Cell("v", 1))
	})

	t.Run("existing without key column appends", func(t *testing.T) {
		existing := mustTable(t, []string{"v"}, []any{"a"})
		incoming := mustTable(t, []string{"id", "v"}, []any{1, "b"})

		got, err := MergeTables(existing, incoming, "id")
		require.NoError(t, err)
		assert.Equal(t, []any{nil, "a"}, []any{got.Cell("id", 0), got.Cell("v", 0)})
		assert.Equal(t, 2, got.NumRows())
	})
}

func TestMergeTables_Errors(t *testing.T) {
	existing := mustTable(t, []string{"id", "v"}, []any{1, "a"})

	_, err := MergeTables(existing, mustTable(t, []string{"v"}, []any{"b"}), "id")
	require.True(t, errors.IsValidation(err), "missing key column: %v", err)

	_, err = MergeTables(existing, mustTable(t, []string{"id", "v"}, []any{1, 2}), "id")
	require.True(t, errors.IsValidation(err), "type conflict: %v", err)
}

func TestMergeTables_Widening(t *testing.T) {
	existing := mustTable(t, []string{"n"}, []any{1})
	incoming := mustTable(t, []string{"n"}, []any{2.5})

	got, err := MergeTables(existing, incoming, "")
	require.NoError(t, err)

	col, _ := got.Column("n")
	assert.Equal(t, TypeFloat64, col.Type)
	assert.Equal(t, []any{float64(1), 2.5}, col.Values)
}

func TestMerge(t *testing.T) {
	table := Tabular(mustTable(t, []string{"id"}, []any{1}))

	tests := []struct {
		name     string
		existing Payload
		incoming Payload
		want     Payload
	}{
		{
			name:     "empty existing yields incoming",
			existing: Empty(),
			incoming: table,
			want:     table,
		},
		{
			name:     "empty incoming keeps existing",
			existing: table,
			incoming: Empty(),
			want:     table,
		},
		{
			name:     "objects merge shallowly",
			existing: mustDocument(t, map[string]any{"a": 1, "b": map[string]any{"x": 1}}),
			incoming: mustDocument(t, map[string]any{"b": map[string]any{"y": 2}, "c": true}),
			want:     mustDocument(t, map[string]any{"a": 1, "b": map[string]any{"y": 2}, "c": true}),
		},
		{
			name:     "arrays append",
			existing: mustDocument(t, []any{1, 2}),
			incoming: mustDocument(t, []any{2, 3}),
			want:     mustDocument(t, []any{1, 2, 2, 3}),
		},
		{
			name:     "scalar and object append",
			existing: mustDocument(t, "hello"),
			incoming: mustDocument(t, map[string]any{"k": "v"}),
			want:     mustDocument(t, []any{"hello", map[string]any{"k": "v"}}),
		},
		{
			name:     "table and array append as records",
			existing: table,
			incoming: mustDocument(t, []any{map[string]any{"id": 2, "tags": []any{"x"}}}),
			want: mustDocument(t, []any{
				map[string]any{"id": 1},
				map[string]any{"id": 2, "tags": []any{"x"}},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(tt.existing, tt.incoming, MergeOptions{})
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %#v", got)
		})
	}
}

func TestMerge_TablesUseKey(t *testing.T) {
	existing := Tabular(mustTable(t, []string{"id", "v"}, []any{1, "a"}))
	incoming := Tabular(mustTable(t, []string{"id", "v"}, []any{1, "b"}))

	got, err := Merge(existing, incoming, MergeOptions{KeyColumn: "id"})
	require.NoError(t, err)

	tbl, ok := got.Table()
	require.True(t, ok)
	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, "b", tbl.Cell("v", 0))
}

func TestDocument_Normalization(t *testing.T) {
	p, err := Document(map[string]any{
		"ints":   []int{1, 2},
		"nested": map[string]float32{"f": 1.5},
		"n":      nil,
	})
	require.NoError(t, err)

	doc, ok := p.Document()
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"ints":   []any{int64(1), int64(2)},
		"nested": map[string]any{"f": 1.5},
		"n":      nil,
	}, doc)

	_, err = Document(map[int]string{1: "x"})
	require.True(t, errors.IsValidation(err))

	_, err = Document([]any{make(chan int)})
	require.True(t, errors.IsValidation(err))
}

func TestPayload_Shapes(t *testing.T) {
	assert.True(t, Empty().IsEmpty())
	assert.True(t, Tabular(nil).IsEmpty())
	assert.Equal(t, ShapeDocument, mustDocument(t, nil).Shape())
	assert.Equal(t, "table", ShapeTable.String())

	_, ok := Empty().Table()
	assert.False(t, ok)
	assert.False(t, Empty().Equal(mustDocument(t, nil)))
}
