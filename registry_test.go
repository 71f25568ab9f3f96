package dfskit_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/dfskit/dfskit"
)

// stubFS is a registered-but-inert filesystem used to exercise the registry.
type stubFS struct {
	base dfskit.Path
}

func (s *stubFS) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, dfskit.ErrNotSupported
}

func (s *stubFS) Create(context.Context, string) (io.WriteCloser, error) {
	return nil, dfskit.ErrNotSupported
}

func (s *stubFS) Stat(context.Context, string) (*dfskit.FileStatus, error) {
	return nil, dfskit.ErrNotFound
}

func (s *stubFS) ReadDir(context.Context, string) ([]*dfskit.FileStatus, error) {
	return nil, dfskit.ErrNotSupported
}

func (s *stubFS) MkdirAll(context.Context, string, os.FileMode) error { return nil }
func (s *stubFS) Rename(context.Context, string, string) error       { return dfskit.ErrNotSupported }
func (s *stubFS) Delete(context.Context, string) (bool, error)       { return false, nil }
func (s *stubFS) Close() error                                       { return nil }

func init() {
	dfskit.Register("stub", func(base dfskit.Path, _ dfskit.Config) (dfskit.FileSystem, error) {
		return &stubFS{base: base}, nil
	})
}

func TestResolveRegisteredScheme(t *testing.T) {
	p, err := dfskit.ParsePath("stub://host/data")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}

	fs, err := dfskit.Resolve(p, dfskit.DefaultConfig())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer func() { _ = fs.Close() }()

	stub, ok := fs.(*stubFS)
	if !ok {
		t.Fatalf("Resolve returned %T, want *stubFS", fs)
	}
	if stub.base.Scheme() != "stub" || stub.base.Authority() != "host" {
		t.Errorf("factory base = %v", stub.base)
	}
	if stub.base.Name() != "/" {
		t.Errorf("factory base name = %q, want /", stub.base.Name())
	}
}

func TestResolveUnknownScheme(t *testing.T) {
	p, err := dfskit.ParsePath("bogus://host/data")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}
	if _, err := dfskit.Resolve(p, dfskit.DefaultConfig()); !errors.Is(err, dfskit.ErrUnavailable) {
		t.Errorf("Resolve error = %v, want ErrUnavailable", err)
	}
}

func TestResolveFactoryError(t *testing.T) {
	dfskit.Register("failing", func(dfskit.Path, dfskit.Config) (dfskit.FileSystem, error) {
		return nil, errors.New("boom")
	})
	defer dfskit.Unregister("failing")

	p, err := dfskit.ParsePath("failing://host/data")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}
	if _, err := dfskit.Resolve(p, dfskit.DefaultConfig()); !errors.Is(err, dfskit.ErrUnavailable) {
		t.Errorf("Resolve error = %v, want ErrUnavailable", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	dfskit.Register("stub", func(base dfskit.Path, _ dfskit.Config) (dfskit.FileSystem, error) {
		return &stubFS{base: base}, nil
	})
}

func TestSchemesAndUnregister(t *testing.T) {
	if !dfskit.IsRegistered("stub") {
		t.Fatal("stub not registered")
	}

	found := false
	for _, name := range dfskit.Schemes() {
		if name == "stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("Schemes() = %v, missing stub", dfskit.Schemes())
	}

	dfskit.Register("transient", func(base dfskit.Path, _ dfskit.Config) (dfskit.FileSystem, error) {
		return &stubFS{base: base}, nil
	})
	if !dfskit.Unregister("transient") {
		t.Error("Unregister returned false for registered scheme")
	}
	if dfskit.Unregister("transient") {
		t.Error("Unregister returned true for missing scheme")
	}
}
