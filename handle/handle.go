// Package handle defines FileHandle, the caller-facing address of a stored
// file: a backend kind, a location, and a fixed format.
//
// Handles are validated when built. An unknown format tag, an empty
// location, or a location whose extension names a different format is
// rejected before any backend is touched:
//
//	h, err := handle.New(handle.KindLocal, "reports/q1", "csv")
//	// h.Name() == "reports/q1.csv"
//
//	h, err = handle.Parse("s3://analytics/events/2024", "parquet")
//	// h.Bucket() == "analytics", h.Name() == "events/2024.parquet"
package handle

import (
	"path"
	"strings"

	"github.com/mkpace/file-provider/errors"
)

// Handle is an immutable file address. The zero value is invalid.
type Handle struct {
	kind     Kind
	location string
	bucket   string
	format   Format
}

// New builds a handle for location on the given backend kind.
func New(kind Kind, location string, format string) (Handle, error) {
	return build(kind, "", location, format)
}

// NewInBucket builds an S3 handle that names its own bucket instead of using
// the provider's configured default.
func NewInBucket(bucket, key string, format string) (Handle, error) {
	if strings.TrimSpace(bucket) == "" {
		return Handle{}, errors.New(errors.CodeValidation, "bucket must not be empty")
	}
	return build(KindS3, bucket, key, format)
}

// Parse builds a handle from a URI. Supported forms are s3://bucket/key,
// file://path, and a bare path, which addresses the local backend.
func Parse(uri string, format string) (Handle, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return New(KindLocal, uri, format)
	}

	switch strings.ToLower(scheme) {
	case "file":
		return New(KindLocal, rest, format)
	case "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		return NewInBucket(bucket, key, format)
	default:
		return Handle{}, errors.WithContext(
			errors.Newf(errors.CodeValidation, "unsupported scheme %q", scheme),
			"uri", uri,
		)
	}
}

func build(kind Kind, bucket, location, tag string) (Handle, error) {
	format, err := ParseFormat(tag)
	if err != nil {
		return Handle{}, err
	}
	if kind != KindLocal && kind != KindS3 {
		return Handle{}, errors.Newf(errors.CodeValidation, "unsupported backend kind %s", kind)
	}
	if err := validateLocation(location, format); err != nil {
		return Handle{}, errors.WithContext(err, "location", location)
	}

	return Handle{
		kind:     kind,
		location: location,
		bucket:   bucket,
		format:   format,
	}, nil
}

func validateLocation(location string, format Format) error {
	switch {
	case strings.TrimSpace(location) == "":
		return errors.New(errors.CodeValidation, "location must not be empty")
	case strings.ContainsRune(location, 0):
		return errors.New(errors.CodeValidation, "location contains a NUL byte")
	case strings.HasSuffix(location, "/"):
		return errors.New(errors.CodeValidation, "location names a directory")
	}

	if other, ok := formatForExtension(path.Ext(location)); ok && other != format {
		return errors.Newf(errors.CodeValidation,
			"location has %s extension but handle format is %s", other, format)
	}
	return nil
}

// Kind returns the backend kind.
func (h Handle) Kind() Kind { return h.kind }

// Location returns the location exactly as given at construction.
func (h Handle) Location() string { return h.location }

// Bucket returns the bucket embedded in the handle, or "" when the
// provider's default applies.
func (h Handle) Bucket() string { return h.bucket }

// Format returns the handle's format.
func (h Handle) Format() Format { return h.format }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.kind == KindUnknown }

// Name returns the stored object name: the location with the format's
// extension appended unless it is already present.
func (h Handle) Name() string {
	ext := h.format.Extension()
	if strings.EqualFold(path.Ext(h.location), ext) {
		return h.location
	}
	return h.location + ext
}

// String renders the handle as a URI.
func (h Handle) String() string {
	switch h.kind {
	case KindS3:
		if h.bucket != "" {
			return "s3://" + h.bucket + "/" + h.Name()
		}
		return "s3:" + h.Name()
	case KindLocal:
		return "file://" + h.Name()
	default:
		return ""
	}
}
