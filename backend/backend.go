// Package backend defines the storage contract shared by every backend.
//
// A Backend reads and writes whole byte buffers at a Location. All
// implementations follow the same rules:
//
//   - Read and Delete fail with CodeNotFound when nothing is stored.
//   - Write creates whatever parent structure the medium needs and
//     replaces existing content in one step, so readers never observe a
//     partial object.
//   - Exists never fails for a missing object; it returns false.
//
// Remote backends retry transient failures through Retry; callers only
// ever see CodeNotFound, CodeBackend, or CodeValidation.
package backend

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"syscall"

	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
)

// Location is a backend-native address. Local backends use Key as a
// slash-separated path relative to their root and leave Bucket empty.
type Location struct {
	Bucket string
	Key    string
}

// String renders the location for logs and error context.
func (l Location) String() string {
	if l.Bucket == "" {
		return l.Key
	}
	return l.Bucket + "/" + l.Key
}

// Backend stores raw file contents.
type Backend interface {
	// Kind returns the handle kind this backend serves.
	Kind() handle.Kind

	// Read returns the full contents stored at loc.
	Read(ctx context.Context, loc Location) ([]byte, error)

	// Write replaces the contents stored at loc.
	Write(ctx context.Context, loc Location, data []byte) error

	// Exists reports whether an object is stored at loc.
	Exists(ctx context.Context, loc Location) (bool, error)

	// Delete removes the object stored at loc.
	Delete(ctx context.Context, loc Location) error
}

// NotFound builds the error returned when loc holds nothing.
func NotFound(loc Location) error {
	return errors.WithContext(
		errors.Newf(errors.CodeNotFound, "no object at %s", loc),
		"location", loc.String(),
	)
}

// Failure wraps err as a permanent backend error for loc.
func Failure(err error, loc Location, op string) error {
	return errors.WrapWithContext(err, errors.CodeBackend, op+" failed", map[string]interface{}{
		"location": loc.String(),
		"op":       op,
	})
}

// ClassifyTransport assigns a code to low-level transport failures:
// deadlines become CodeTimeout, network and connection errors become
// CodeNetwork (both retryable), cancellation and everything else become
// CodeBackend.
func ClassifyTransport(err error, loc Location, op string) error {
	ctx := map[string]interface{}{"location": loc.String(), "op": op}
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.WrapWithContext(err, errors.CodeBackend, op+" canceled", ctx)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.WrapWithContext(err, errors.CodeTimeout, op+" timed out", ctx)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.WrapWithContext(err, errors.CodeTimeout, op+" timed out", ctx)
		}
		return errors.WrapWithContext(err, errors.CodeNetwork, op+" network failure", ctx)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.ECONNREFUSED) ||
		stderrors.Is(err, syscall.EPIPE) {
		return errors.WrapWithContext(err, errors.CodeNetwork, op+" connection failure", ctx)
	}
	return Failure(err, loc, op)
}
