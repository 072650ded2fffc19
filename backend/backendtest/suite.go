// Package backendtest provides a conformance suite for backend.Backend
// implementations.
//
// Backend packages run it against a fresh instance per group:
//
//	func TestConformance(t *testing.T) {
//	    backendtest.TestSuite(t, func() backend.Backend {
//	        return local.NewMemory()
//	    })
//	}
package backendtest

import (
	"bytes"
	"context"
	"testing"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/errors"
)

// Config adapts the suite to a backend.
type Config struct {
	// Bucket is set on every Location the suite builds. Object-store
	// backends need it; local backends leave it empty.
	Bucket string

	// SkipTests lists subtest names to skip, e.g. "Delete/Missing".
	SkipTests []string
}

// TestSuite runs every conformance group with a default Config.
func TestSuite(t *testing.T, newBackend func() backend.Backend) {
	TestSuiteWithConfig(t, newBackend, Config{})
}

// TestSuiteWithConfig runs every conformance group. newBackend must return
// an empty backend on each call.
func TestSuiteWithConfig(t *testing.T, newBackend func() backend.Backend, cfg Config) {
	groups := []struct {
		name string
		run  func(*testing.T, backend.Backend, Config)
	}{
		{"ReadWrite", testReadWrite},
		{"Exists", testExists},
		{"Delete", testDelete},
	}

	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if cfg.skip(g.name) {
				t.Skip("skipped by backend configuration")
			}
			g.run(t, newBackend(), cfg)
		})
	}
}

func (c Config) skip(name string) bool {
	for _, s := range c.SkipTests {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) run(t *testing.T, group, name string, fn func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		if c.skip(group + "/" + name) {
			t.Skip("skipped by backend configuration")
		}
		fn(t)
	})
}

func (c Config) loc(key string) backend.Location {
	return backend.Location{Bucket: c.Bucket, Key: key}
}

func testReadWrite(t *testing.T, b backend.Backend, cfg Config) {
	ctx := context.Background()

	cfg.run(t, "ReadWrite", "RoundTrip", func(t *testing.T) {
		want := []byte("id,name\n1,alice\n")
		if err := b.Write(ctx, cfg.loc("roundtrip.csv"), want); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := b.Read(ctx, cfg.loc("roundtrip.csv"))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Read() = %q, want %q", got, want)
		}
	})

	cfg.run(t, "ReadWrite", "Overwrite", func(t *testing.T) {
		loc := cfg.loc("overwrite.json")
		if err := b.Write(ctx, loc, []byte(`{"v":1,"padding":"longer first version"}`)); err != nil {
			t.Fatalf("first Write() error = %v", err)
		}
		if err := b.Write(ctx, loc, []byte(`{"v":2}`)); err != nil {
			t.Fatalf("second Write() error = %v", err)
		}
		got, err := b.Read(ctx, loc)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(got) != `{"v":2}` {
			t.Errorf("Read() = %q, want second version only", got)
		}
	})

	cfg.run(t, "ReadWrite", "NestedKey", func(t *testing.T) {
		loc := cfg.loc("a/b/c/nested.parquet")
		if err := b.Write(ctx, loc, []byte("PAR1")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if _, err := b.Read(ctx, loc); err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	})

	cfg.run(t, "ReadWrite", "EmptyObject", func(t *testing.T) {
		loc := cfg.loc("empty.csv")
		if err := b.Write(ctx, loc, nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := b.Read(ctx, loc)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Read() returned %d bytes, want 0", len(got))
		}
	})

	cfg.run(t, "ReadWrite", "Binary", func(t *testing.T) {
		want := make([]byte, 4096)
		for i := range want {
			want[i] = byte(i * 7)
		}
		loc := cfg.loc("binary.parquet")
		if err := b.Write(ctx, loc, want); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := b.Read(ctx, loc)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Error("Read() returned different bytes")
		}
	})

	cfg.run(t, "ReadWrite", "ReadMissing", func(t *testing.T) {
		_, err := b.Read(ctx, cfg.loc("missing.csv"))
		if !errors.IsNotFound(err) {
			t.Errorf("Read() error = %v, want NOT_FOUND", err)
		}
	})
}

func testExists(t *testing.T, b backend.Backend, cfg Config) {
	ctx := context.Background()

	cfg.run(t, "Exists", "Missing", func(t *testing.T) {
		ok, err := b.Exists(ctx, cfg.loc("nothing-here.json"))
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("Exists() = true for missing object")
		}
	})

	cfg.run(t, "Exists", "AfterWrite", func(t *testing.T) {
		loc := cfg.loc("dir/present.json")
		if err := b.Write(ctx, loc, []byte("{}")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		ok, err := b.Exists(ctx, loc)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !ok {
			t.Error("Exists() = false after Write")
		}
	})
}

func testDelete(t *testing.T, b backend.Backend, cfg Config) {
	ctx := context.Background()

	cfg.run(t, "Delete", "Removes", func(t *testing.T) {
		loc := cfg.loc("doomed.csv")
		if err := b.Write(ctx, loc, []byte("a\n1\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := b.Delete(ctx, loc); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		ok, err := b.Exists(ctx, loc)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if ok {
			t.Error("Exists() = true after Delete")
		}
		if _, err := b.Read(ctx, loc); !errors.IsNotFound(err) {
			t.Errorf("Read() after Delete error = %v, want NOT_FOUND", err)
		}
	})

	cfg.run(t, "Delete", "Missing", func(t *testing.T) {
		err := b.Delete(ctx, cfg.loc("never-written.csv"))
		if !errors.IsNotFound(err) {
			t.Errorf("Delete() error = %v, want NOT_FOUND", err)
		}
	})
}
