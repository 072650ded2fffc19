// Package local implements the backend contract on a go-billy filesystem:
// the operating system's disk below a root directory, or memory.
//
// Writes are atomic with respect to readers. Content goes to a temporary
// file in the destination directory, which is then renamed over the target.
// If any step fails the temporary file is removed and the previous content
// stays in place. Local I/O is never retried.
package local

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
	"github.com/mkpace/file-provider/handle"
)

const (
	tempPrefix      = ".fileprovider-"
	dirPerm         = 0o755
	maxTempAttempts = 10
)

// Backend stores files in a billy.Filesystem.
type Backend struct {
	bfs      billy.Filesystem
	root     string
	filePerm os.FileMode
	logger   *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithFileMode sets the permission bits of written files, subject to the
// process umask. The default is 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(b *Backend) { b.filePerm = mode }
}

// New returns a backend rooted at root on the local disk, creating the
// directory if needed.
func New(root string, opts ...Option) (*Backend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WithContext(
			errors.Wrap(err, errors.CodeValidation, "resolve local root"), "root", root)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, errors.WithContext(
			errors.Wrap(err, errors.CodeBackend, "create local root"), "root", abs)
	}
	b := NewWithFilesystem(osfs.New(abs), opts...)
	b.root = abs
	return b, nil
}

// NewMemory returns a backend holding files in memory.
func NewMemory(opts ...Option) *Backend {
	return NewWithFilesystem(memfs.New(), opts...)
}

// NewWithFilesystem returns a backend over an existing billy filesystem.
// Locations are interpreted relative to its root.
func NewWithFilesystem(bfs billy.Filesystem, opts ...Option) *Backend {
	b := &Backend{
		bfs:      bfs,
		root:     bfs.Root(),
		filePerm: 0o644,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Unwrap returns the underlying billy filesystem.
func (b *Backend) Unwrap() billy.Filesystem {
	return b.bfs
}

// Root returns the directory locations are relative to.
func (b *Backend) Root() string {
	return b.root
}

// Kind implements backend.Backend.
func (b *Backend) Kind() handle.Kind {
	return handle.KindLocal
}

// Read implements backend.Backend.
func (b *Backend) Read(ctx context.Context, loc backend.Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, backend.Failure(err, loc, "read")
	}
	key := normalize(loc.Key)

	if err := b.requireFile(key, loc); err != nil {
		return nil, err
	}
	f, err := b.bfs.Open(key)
	if err != nil {
		return nil, b.translate(err, loc, "open")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, backend.Failure(err, loc, "read")
	}
	b.logger.Debug("read local file", "location", key, "bytes", len(data))
	return data, nil
}

// Write implements backend.Backend.
func (b *Backend) Write(ctx context.Context, loc backend.Location, data []byte) error {
	if err := ctx.Err(); err != nil {
		return backend.Failure(err, loc, "write")
	}
	key := normalize(loc.Key)
	dir := path.Dir(key)

	if dir != "." {
		if err := b.bfs.MkdirAll(dir, dirPerm); err != nil {
			return backend.Failure(err, loc, "create parent directories")
		}
	}

	tmp, tmpName, err := b.createTemp(dir)
	if err != nil {
		return backend.Failure(err, loc, "create temp file")
	}

	committed := false
	defer func() {
		if !committed {
			_ = b.bfs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return backend.Failure(err, loc, "write temp file")
	}
	if s, ok := tmp.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			_ = tmp.Close()
			return backend.Failure(err, loc, "sync temp file")
		}
	}
	if err := tmp.Close(); err != nil {
		return backend.Failure(err, loc, "close temp file")
	}
	if err := b.bfs.Rename(tmpName, key); err != nil {
		return backend.Failure(err, loc, "rename into place")
	}
	committed = true

	b.logger.Debug("wrote local file", "location", key, "bytes", len(data))
	return nil
}

// Exists implements backend.Backend. Directories are not files and report
// false.
func (b *Backend) Exists(ctx context.Context, loc backend.Location) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, backend.Failure(err, loc, "stat")
	}
	info, err := b.bfs.Stat(normalize(loc.Key))
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, backend.Failure(err, loc, "stat")
	}
	return !info.IsDir(), nil
}

// Delete implements backend.Backend.
func (b *Backend) Delete(ctx context.Context, loc backend.Location) error {
	if err := ctx.Err(); err != nil {
		return backend.Failure(err, loc, "delete")
	}
	key := normalize(loc.Key)

	if err := b.requireFile(key, loc); err != nil {
		return err
	}
	if err := b.bfs.Remove(key); err != nil {
		return b.translate(err, loc, "delete")
	}
	b.logger.Debug("deleted local file", "location", key)
	return nil
}

// createTemp opens a new, uniquely named file next to the target so the
// final rename never crosses filesystems.
func (b *Backend) createTemp(dir string) (billy.File, string, error) {
	var lastErr error
	for i := 0; i < maxTempAttempts; i++ {
		name := path.Join(dir, tempPrefix+strconv.FormatUint(rand.Uint64(), 36))
		f, err := b.bfs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, b.filePerm)
		if err == nil {
			return f, name, nil
		}
		if !stderrors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		lastErr = err
	}
	return nil, "", lastErr
}

func (b *Backend) requireFile(key string, loc backend.Location) error {
	info, err := b.bfs.Stat(key)
	if err != nil {
		return b.translate(err, loc, "stat")
	}
	if info.IsDir() {
		return errors.WithContext(
			errors.Newf(errors.CodeValidation, "%s is a directory", loc),
			"location", loc.String(),
		)
	}
	return nil
}

func (b *Backend) translate(err error, loc backend.Location, op string) error {
	if stderrors.Is(err, os.ErrNotExist) {
		return backend.NotFound(loc)
	}
	return backend.Failure(err, loc, op)
}

// normalize converts keys to slash-separated, cleaned relative paths.
func normalize(key string) string {
	return path.Clean(filepath.ToSlash(key))
}
