package handle

import (
	"strings"

	"github.com/mkpace/file-provider/errors"
)

// Format is the encoding of a stored file. The set is closed.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatCSV, FormatParquet, FormatJSON}
}

// ParseFormat validates a format tag. Matching ignores case and
// surrounding space; anything outside the closed set is a validation error.
func ParseFormat(tag string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(tag)))
	if !f.Valid() {
		return "", errors.WithContext(
			errors.Newf(errors.CodeValidation, "unknown format %q", tag),
			"format", tag,
		)
	}
	return f, nil
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatParquet, FormatJSON:
		return true
	}
	return false
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if !f.Valid() {
		return ""
	}
	return "." + string(f)
}

// Tabular reports whether f can only hold tabular payloads.
func (f Format) Tabular() bool {
	return f == FormatCSV || f == FormatParquet
}

func (f Format) String() string {
	return string(f)
}

// formatForExtension returns the format owning ext, if any.
func formatForExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	for _, f := range Formats() {
		if f.Extension() == ext {
			return f, true
		}
	}
	return "", false
}
