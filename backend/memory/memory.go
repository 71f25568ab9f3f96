// Package memory provides an in-memory backend for dfskit, registered
// under the "mem" scheme. It is useful for unit tests and ephemeral
// storage.
//
// Object stores are keyed by authority, so "mem://jobs/a" and "mem://tmp/a"
// are distinct objects and every handle resolved for the same authority
// observes the same contents — mirroring the client-side handle caching of
// real filesystem clients. Data lives in RAM for the life of the process;
// use Reset to drop an authority's contents.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.Register("mem", New)
}

var (
	storesMu sync.Mutex
	stores   = make(map[string]*store)
)

// store holds the objects of one authority.
type store struct {
	mu      sync.RWMutex
	objects map[string]*object // normalized absolute name -> object
}

type object struct {
	data    []byte
	mode    os.FileMode
	modTime time.Time
	dir     bool
}

func storeFor(authority string) *store {
	storesMu.Lock()
	defer storesMu.Unlock()

	s, ok := stores[authority]
	if !ok {
		s = &store{objects: make(map[string]*object)}
		stores[authority] = s
	}
	return s
}

// Reset drops all contents stored under an authority. Primarily for tests.
func Reset(authority string) {
	storesMu.Lock()
	defer storesMu.Unlock()
	delete(stores, authority)
}

// FileSystem implements dfskit.FileSystem over a process-local object store.
type FileSystem struct {
	base   dfskit.Path
	store  *store
	closed bool
	mu     sync.RWMutex
}

// New creates a handle onto the store for the base path's authority.
func New(base dfskit.Path, _ dfskit.Config) (dfskit.FileSystem, error) {
	return &FileSystem{base: base, store: storeFor(base.Authority())}, nil
}

// Open opens the named file for reading.
func (fs *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}
	name = normalize(name)

	fs.store.mu.RLock()
	obj, ok := fs.store.objects[name]
	fs.store.mu.RUnlock()

	if !ok || obj.dir {
		if ok || fs.isImplicitDir(name) {
			return nil, fmt.Errorf("memory: open %s: is a directory", name)
		}
		return nil, fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
	}

	// Copy so later writes do not race with the reader.
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create opens the named file for writing. Content becomes visible
// atomically when the writer is closed.
func (fs *FileSystem) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}
	return &memoryWriter{fs: fs, name: normalize(name), buf: &bytes.Buffer{}}, nil
}

// Stat returns metadata for the named file or directory.
func (fs *FileSystem) Stat(ctx context.Context, name string) (*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}
	name = normalize(name)

	fs.store.mu.RLock()
	defer fs.store.mu.RUnlock()

	if obj, ok := fs.store.objects[name]; ok {
		return fs.status(name, obj), nil
	}
	if name == "/" || fs.implicitDirLocked(name) {
		return &dfskit.FileStatus{Path: fs.base.WithName(name), Size: -1, Dir: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
}

// ReadDir lists the immediate children of the named directory, sorted by name.
func (fs *FileSystem) ReadDir(ctx context.Context, name string) ([]*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}
	name = normalize(name)

	fs.store.mu.RLock()
	defer fs.store.mu.RUnlock()

	if name != "/" {
		obj, ok := fs.store.objects[name]
		switch {
		case ok && !obj.dir:
			return nil, fmt.Errorf("memory: %s: not a directory", name)
		case !ok && !fs.implicitDirLocked(name):
			return nil, fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
		}
	}

	prefix := name
	if prefix != "/" {
		prefix += "/"
	}

	children := make(map[string]*dfskit.FileStatus)
	for key, obj := range fs.store.objects {
		if key == name || !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			// Deeper entry; surfaces as an implied child directory.
			childName := prefix + rest[:idx]
			if _, seen := children[childName]; !seen {
				children[childName] = &dfskit.FileStatus{
					Path: fs.base.WithName(childName),
					Size: -1,
					Dir:  true,
				}
			}
			continue
		}
		children[key] = fs.status(key, obj)
	}

	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]*dfskit.FileStatus, 0, len(names))
	for _, n := range names {
		out = append(out, children[n])
	}
	return out, nil
}

// MkdirAll records an explicit directory entry. Ancestors are implicit.
func (fs *FileSystem) MkdirAll(ctx context.Context, name string, perm os.FileMode) error {
	if err := fs.check(ctx); err != nil {
		return err
	}
	name = normalize(name)
	if name == "/" {
		return nil
	}

	fs.store.mu.Lock()
	defer fs.store.mu.Unlock()

	if obj, ok := fs.store.objects[name]; ok && !obj.dir {
		return fmt.Errorf("%w: %s is a file", dfskit.ErrAlreadyExists, name)
	}
	fs.store.objects[name] = &object{dir: true, mode: perm, modTime: time.Now()}
	return nil
}

// Rename moves a file or directory tree. An existing destination fails
// with ErrAlreadyExists.
func (fs *FileSystem) Rename(ctx context.Context, oldname, newname string) error {
	if err := fs.check(ctx); err != nil {
		return err
	}
	oldname, newname = normalize(oldname), normalize(newname)

	fs.store.mu.Lock()
	defer fs.store.mu.Unlock()

	if _, ok := fs.store.objects[newname]; ok {
		return fmt.Errorf("%w: %s", dfskit.ErrAlreadyExists, newname)
	}

	moved := false
	oldPrefix := oldname + "/"
	for key, obj := range fs.store.objects {
		switch {
		case key == oldname:
			fs.store.objects[newname] = obj
			delete(fs.store.objects, key)
			moved = true
		case strings.HasPrefix(key, oldPrefix):
			fs.store.objects[newname+"/"+key[len(oldPrefix):]] = obj
			delete(fs.store.objects, key)
			moved = true
		}
	}
	if !moved {
		return fmt.Errorf("%w: %s", dfskit.ErrNotFound, oldname)
	}
	return nil
}

// Delete removes the named file or directory tree. Returns (false, nil)
// when the name does not exist.
func (fs *FileSystem) Delete(ctx context.Context, name string) (bool, error) {
	if err := fs.check(ctx); err != nil {
		return false, err
	}
	name = normalize(name)

	fs.store.mu.Lock()
	defer fs.store.mu.Unlock()

	deleted := false
	prefix := name + "/"
	if name == "/" {
		prefix = "/"
	}
	for key := range fs.store.objects {
		if key == name || strings.HasPrefix(key, prefix) {
			delete(fs.store.objects, key)
			deleted = true
		}
	}
	return deleted, nil
}

// Close releases the handle. The authority's store survives for later handles.
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

func (fs *FileSystem) status(name string, obj *object) *dfskit.FileStatus {
	size := int64(len(obj.data))
	if obj.dir {
		size = -1
	}
	return &dfskit.FileStatus{
		Path:    fs.base.WithName(name),
		Size:    size,
		Mode:    obj.mode,
		ModTime: obj.modTime,
		Dir:     obj.dir,
	}
}

func (fs *FileSystem) isImplicitDir(name string) bool {
	fs.store.mu.RLock()
	defer fs.store.mu.RUnlock()
	return fs.implicitDirLocked(name)
}

func (fs *FileSystem) implicitDirLocked(name string) bool {
	prefix := name + "/"
	for key := range fs.store.objects {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func normalize(name string) string {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return path.Clean(name)
}

// memoryWriter buffers writes and commits the object on Close.
type memoryWriter struct {
	fs     *FileSystem
	name   string
	buf    *bytes.Buffer
	closed bool
	mu     sync.Mutex
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, dfskit.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.fs.store.mu.Lock()
	defer w.fs.store.mu.Unlock()

	if obj, ok := w.fs.store.objects[w.name]; ok && obj.dir {
		return fmt.Errorf("memory: create %s: is a directory", w.name)
	}
	w.fs.store.objects[w.name] = &object{
		data:    w.buf.Bytes(),
		mode:    0644,
		modTime: time.Now(),
	}
	return nil
}

var _ dfskit.FileSystem = (*FileSystem)(nil)
