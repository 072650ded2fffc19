// Package resolve maps file handles to backend locations.
//
// Resolution is pure string work and never touches storage, so a handle
// that would escape its root is rejected before any I/O happens.
package resolve

import (
	"path/filepath"
	"strings"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
)

// Resolver turns a handle into a backend-native location.
type Resolver interface {
	// Kind returns the handle kind the resolver accepts.
	Kind() handle.Kind

	// Resolve returns the location for h.
	Resolve(h handle.Handle) (backend.Location, error)
}

// LocalResolver resolves local handles below a root directory.
type LocalResolver struct {
	root string
}

var _ Resolver = (*LocalResolver)(nil)

// Local returns a resolver for handles relative to root.
func Local(root string) (*LocalResolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WithContext(
			errors.Wrap(err, errors.CodeValidation, "resolve local root"), "root", root)
	}
	return &LocalResolver{root: abs}, nil
}

// Root returns the absolute root directory.
func (r *LocalResolver) Root() string { return r.root }

// Kind implements Resolver.
func (r *LocalResolver) Kind() handle.Kind { return handle.KindLocal }

// Resolve implements Resolver. The returned key is slash-separated and
// relative to the root. Absolute locations and locations that clean to the
// root or outside it are rejected.
func (r *LocalResolver) Resolve(h handle.Handle) (backend.Location, error) {
	if err := requireKind(h, handle.KindLocal); err != nil {
		return backend.Location{}, err
	}

	name := h.Name()
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return backend.Location{}, rejected(h, "absolute locations are not allowed")
	}

	joined := filepath.Join(r.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(r.root, joined)
	if err != nil {
		return backend.Location{}, rejected(h, "location cannot be made relative to the root")
	}
	if rel == "." {
		return backend.Location{}, rejected(h, "location resolves to the root itself")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return backend.Location{}, rejected(h, "location escapes the root")
	}

	return backend.Location{Key: filepath.ToSlash(rel)}, nil
}

// BucketResolver resolves S3 handles to bucket keys.
type BucketResolver struct {
	bucket string
	prefix string
}

var _ Resolver = (*BucketResolver)(nil)

// Bucket returns a resolver that places objects in defaultBucket, unless the
// handle names its own, under an optional key prefix.
func Bucket(defaultBucket, prefix string) *BucketResolver {
	return &BucketResolver{
		bucket: strings.TrimSpace(defaultBucket),
		prefix: strings.Trim(prefix, "/"),
	}
}

// Kind implements Resolver.
func (r *BucketResolver) Kind() handle.Kind { return handle.KindS3 }

// Resolve implements Resolver. Keys are opaque: "." and ".." segments are
// kept as written.
func (r *BucketResolver) Resolve(h handle.Handle) (backend.Location, error) {
	if err := requireKind(h, handle.KindS3); err != nil {
		return backend.Location{}, err
	}

	bucket := h.Bucket()
	if bucket == "" {
		bucket = r.bucket
	}
	if bucket == "" {
		return backend.Location{}, rejected(h, "no bucket in handle and no default bucket configured")
	}

	key := strings.TrimLeft(h.Name(), "/")
	if key == "" {
		return backend.Location{}, rejected(h, "object key is empty")
	}
	if r.prefix != "" {
		key = r.prefix + "/" + key
	}
	return backend.Location{Bucket: bucket, Key: key}, nil
}

func requireKind(h handle.Handle, want handle.Kind) error {
	if h.Kind() != want {
		return errors.WithContextMap(
			errors.Newf(errors.CodeValidation, "%s handle cannot be resolved by the %s resolver", h.Kind(), want),
			map[string]interface{}{"handle": h.String(), "kind": h.Kind().String()},
		)
	}
	return nil
}

func rejected(h handle.Handle, reason string) error {
	return errors.WithContext(errors.New(errors.CodeValidation, reason), "handle", h.String())
}
