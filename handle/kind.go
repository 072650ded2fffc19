package handle

import (
	"strings"

	"github.com/mkpace/file-provider/errors"
)

// Kind identifies the storage backend a handle addresses.
type Kind int

const (
	// KindUnknown is the zero value and never valid in a handle.
	KindUnknown Kind = iota
	// KindLocal addresses a file below a local root directory.
	KindLocal
	// KindS3 addresses an object in an S3-compatible bucket.
	KindS3
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindS3:
		return "s3"
	default:
		return "unknown"
	}
}

// ParseKind maps a configuration name ("local", "s3") to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "local":
		return KindLocal, nil
	case "s3":
		return KindS3, nil
	default:
		return KindUnknown, errors.Newf(errors.CodeValidation, "unknown backend kind %q", name)
	}
}
