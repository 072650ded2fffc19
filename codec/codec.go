// Package codec converts payloads to and from the bytes of a stored file.
//
// There is one Codec per format in the closed set {csv, parquet, json}.
// Codecs are stateless and safe for concurrent use. A Registry maps a
// handle's format to its codec; Default returns a registry holding all
// three.
//
// Decode failures and shape mismatches are returned as CodeCodec errors
// whose context carries "format" and, when the parser reports a position,
// "offset" (or "line"/"column") and "snippet".
package codec

import (
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
	"github.com/mkpace/file-provider/payload"
)

// Codec encodes and decodes payloads for one format.
type Codec interface {
	// Format returns the format this codec handles.
	Format() handle.Format

	// Encode renders p as file contents.
	Encode(p payload.Payload) ([]byte, error)

	// Decode parses file contents. Empty input decodes to the empty payload
	// for formats where an empty file is meaningful.
	Decode(data []byte) (payload.Payload, error)
}

// SchemaDecoder is implemented by codecs whose stored form loses column
// types. DecodeWithSchema parses the named columns as the given types.
type SchemaDecoder interface {
	DecodeWithSchema(data []byte, schema payload.Schema) (payload.Payload, error)
}

// Registry maps formats to codecs.
type Registry struct {
	codecs map[handle.Format]Codec
}

// NewRegistry returns a registry holding the given codecs. A later codec
// replaces an earlier one for the same format.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[handle.Format]Codec, len(codecs))}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Default returns a registry with the CSV, Parquet, and JSON codecs.
func Default() *Registry {
	return NewRegistry(CSV{}, Parquet{}, JSON{})
}

// Register adds or replaces the codec for c.Format().
func (r *Registry) Register(c Codec) {
	r.codecs[c.Format()] = c
}

// Lookup returns the codec for f.
func (r *Registry) Lookup(f handle.Format) (Codec, error) {
	c, ok := r.codecs[f]
	if !ok {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeValidation, "no codec registered for format %q", f),
			"format", string(f),
		)
	}
	return c, nil
}

// Decode decodes data with c, using schema when c supports it.
func Decode(c Codec, data []byte, schema payload.Schema) (payload.Payload, error) {
	if sd, ok := c.(SchemaDecoder); ok && len(schema) > 0 {
		return sd.DecodeWithSchema(data, schema)
	}
	return c.Decode(data)
}

func requireTable(f handle.Format, p payload.Payload) (*payload.Table, error) {
	t, ok := p.Table()
	if !ok {
		return nil, errors.WithContextMap(
			errors.Newf(errors.CodeCodec, "%s requires a tabular payload, got %s", f, p.Shape()),
			map[string]interface{}{"format": string(f), "shape": p.Shape().String()},
		)
	}
	return t, nil
}

func decodeError(f handle.Format, cause error, message string, ctx map[string]interface{}) error {
	meta := map[string]interface{}{"format": string(f)}
	for k, v := range ctx {
		meta[k] = v
	}
	if cause == nil {
		return errors.WithContextMap(errors.New(errors.CodeCodec, message), meta)
	}
	return errors.WrapWithContext(cause, errors.CodeCodec, message, meta)
}

const snippetRadius = 16

// snippet returns the bytes around offset, for error context.
func snippet(data []byte, offset int64) string {
	start := offset - snippetRadius
	if start < 0 {
		start = 0
	}
	end := offset + snippetRadius
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	if start >= end {
		return ""
	}
	return string(data[start:end])
}
