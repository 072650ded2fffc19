package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpace/file-provider/errors"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		tag     string
		want    Format
		wantErr bool
	}{
		{tag: "csv", want: FormatCSV},
		{tag: "PARQUET", want: FormatParquet},
		{tag: " json ", want: FormatJSON},
		{tag: "xml", wantErr: true},
		{tag: "", wantErr: true},
		{tag: ".csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseFormat(tt.tag)
			if tt.wantErr {
				require.True(t, errors.IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Properties(t *testing.T) {
	assert.Equal(t, ".parquet", FormatParquet.Extension())
	assert.Equal(t, "", Format("xml").Extension())
	assert.True(t, FormatCSV.Tabular())
	assert.True(t, FormatParquet.Tabular())
	assert.False(t, FormatJSON.Tabular())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "local", KindLocal.String())
	assert.Equal(t, "s3", KindS3.String())
	assert.Equal(t, "unknown", Kind(42).String())

	k, err := ParseKind("S3")
	require.NoError(t, err)
	require.Equal(t, KindS3, k)

	_, err = ParseKind("gcs")
	require.True(t, errors.IsValidation(err))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		location string
		format   string
		wantName string
		wantErr  bool
	}{
		{name: "appends extension", kind: KindLocal, location: "reports/q1", format: "csv", wantName: "reports/q1.csv"},
		{name: "keeps matching extension", kind: KindLocal, location: "a/b.json", format: "json", wantName: "a/b.json"},
		{name: "extension case insensitive", kind: KindS3, location: "x.PARQUET", format: "parquet", wantName: "x.PARQUET"},
		{name: "unrelated extension kept", kind: KindS3, location: "data.v2", format: "json", wantName: "data.v2.json"},
		{name: "conflicting extension", kind: KindLocal, location: "a.csv", format: "json", wantErr: true},
		{name: "unknown format", kind: KindLocal, location: "a", format: "yaml", wantErr: true},
		{name: "empty location", kind: KindLocal, location: "  ", format: "csv", wantErr: true},
		{name: "directory location", kind: KindLocal, location: "dir/", format: "csv", wantErr: true},
		{name: "nul byte", kind: KindLocal, location: "a\x00b", format: "csv", wantErr: true},
		{name: "unknown kind", kind: KindUnknown, location: "a", format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.kind, tt.location, tt.format)
			if tt.wantErr {
				require.True(t, errors.IsValidation(err), "got %v", err)
				require.True(t, h.IsZero())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantName, h.Name())
			require.Equal(t, tt.location, h.Location())
			require.Equal(t, tt.kind, h.Kind())
		})
	}
}

func TestParse(t *testing.T) {
	h, err := Parse("s3://analytics/events/2024", "parquet")
	require.NoError(t, err)
	assert.Equal(t, KindS3, h.Kind())
	assert.Equal(t, "analytics", h.Bucket())
	assert.Equal(t, "events/2024.parquet", h.Name())
	assert.Equal(t, "s3://analytics/events/2024.parquet", h.String())

	h, err = Parse("file://reports/q1", "csv")
	require.NoError(t, err)
	assert.Equal(t, KindLocal, h.Kind())
	assert.Equal(t, "file://reports/q1.csv", h.String())

	h, err = Parse("plain/path", "json")
	require.NoError(t, err)
	assert.Equal(t, KindLocal, h.Kind())
	assert.Equal(t, FormatJSON, h.Format())

	_, err = Parse("s3:///key", "json")
	require.True(t, errors.IsValidation(err))

	_, err = Parse("s3://bucket", "json")
	require.True(t, errors.IsValidation(err))

	_, err = Parse("gs://bucket/key", "json")
	require.True(t, errors.IsValidation(err))
}
