// Package local provides the local filesystem backend for dfskit,
// registered under the "file" scheme (and used for scheme-less paths).
//
// By default names map directly onto the host filesystem. The "local.root"
// configuration key rebases all names under a root directory, which is
// convenient for tests and chroot-style setups.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.Register("file", New)
}

// Configuration keys understood by the local backend.
const (
	// ConfigRoot rebases all names under the given directory. Default: "/".
	ConfigRoot = "local.root"
)

// FileSystem implements dfskit.FileSystem over the os package.
type FileSystem struct {
	base   dfskit.Path
	root   string
	closed bool
	mu     sync.RWMutex
}

// New creates a local filesystem handle. The authority component of the
// base path is ignored.
func New(base dfskit.Path, cfg dfskit.Config) (dfskit.FileSystem, error) {
	return &FileSystem{
		base: base,
		root: cfg.GetDefault(ConfigRoot, "/"),
	}, nil
}

// Open opens the named file for reading.
func (fs *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	full := fs.fullPath(name)
	info, err := os.Stat(full)
	if err != nil {
		return nil, translateError(err, name)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("local: open %s: is a directory", name)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, translateError(err, name)
	}
	return f, nil
}

// Create opens the named file for writing, creating parent directories
// as needed.
func (fs *FileSystem) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	full := fs.fullPath(name)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, translateError(err, name)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, translateError(err, name)
	}
	return f, nil
}

// Stat returns metadata for the named file or directory.
func (fs *FileSystem) Stat(ctx context.Context, name string) (*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	info, err := os.Stat(fs.fullPath(name))
	if err != nil {
		return nil, translateError(err, name)
	}
	return fs.status(name, info), nil
}

// ReadDir lists the immediate children of the named directory, sorted by name.
func (fs *FileSystem) ReadDir(ctx context.Context, name string) ([]*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fs.fullPath(name))
	if err != nil {
		return nil, translateError(err, name)
	}

	statuses := make([]*dfskit.FileStatus, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue // raced with a concurrent delete
			}
			return nil, translateError(err, name)
		}
		statuses = append(statuses, fs.status(path.Join(name, entry.Name()), info))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name() < statuses[j].Name() })
	return statuses, nil
}

// MkdirAll creates the named directory and any missing ancestors.
func (fs *FileSystem) MkdirAll(ctx context.Context, name string, perm os.FileMode) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(fs.fullPath(name), perm); err != nil {
		return translateError(err, name)
	}
	return nil
}

// Rename renames oldname to newname. An existing destination fails with
// ErrAlreadyExists.
func (fs *FileSystem) Rename(ctx context.Context, oldname, newname string) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if _, err := os.Stat(fs.fullPath(newname)); err == nil {
		return fmt.Errorf("%w: %s", dfskit.ErrAlreadyExists, newname)
	}
	if _, err := os.Stat(fs.fullPath(oldname)); err != nil {
		return translateError(err, oldname)
	}
	if err := os.Rename(fs.fullPath(oldname), fs.fullPath(newname)); err != nil {
		return translateError(err, oldname)
	}
	return nil
}

// Delete removes the named file or directory tree. Returns (false, nil)
// when the name does not exist.
func (fs *FileSystem) Delete(ctx context.Context, name string) (bool, error) {
	if err := fs.check(ctx); err != nil {
		return false, err
	}

	full := fs.fullPath(name)
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, translateError(err, name)
	}
	if err := os.RemoveAll(full); err != nil {
		return false, translateError(err, name)
	}
	return true, nil
}

// Close releases the handle.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
}

func (fs *FileSystem) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return dfskit.ErrClosed
	}
	return nil
}

func (fs *FileSystem) fullPath(name string) string {
	return filepath.Join(fs.root, filepath.FromSlash(name))
}

func (fs *FileSystem) status(name string, info os.FileInfo) *dfskit.FileStatus {
	size := info.Size()
	if info.IsDir() {
		size = -1
	}
	return &dfskit.FileStatus{
		Path:    fs.base.WithName(name),
		Size:    size,
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime(),
		Dir:     info.IsDir(),
	}
}

func translateError(err error, name string) error {
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %s", dfskit.ErrPermissionDenied, name)
	default:
		return fmt.Errorf("local: %s: %w", name, err)
	}
}

var _ dfskit.FileSystem = (*FileSystem)(nil)
