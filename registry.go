package dfskit

import (
	"fmt"
	"sort"
	"sync"
)

var (
	schemesMu sync.RWMutex
	schemes   = make(map[string]Factory)
)

// Factory creates a FileSystem for a base path. The base carries the scheme
// and authority the handle is bound to; its name component is "/".
type Factory func(base Path, cfg Config) (FileSystem, error)

// Register registers a filesystem factory under the given URI scheme.
// It is typically called from init() in backend packages.
//
// Register panics if factory is nil or the scheme is already registered.
//
// Example:
//
//	func init() {
//	    dfskit.Register("hdfs", New)
//	}
func Register(scheme string, factory Factory) {
	schemesMu.Lock()
	defer schemesMu.Unlock()

	if factory == nil {
		panic("dfskit: Register factory is nil")
	}
	if _, dup := schemes[scheme]; dup {
		panic("dfskit: Register called twice for scheme " + scheme)
	}
	schemes[scheme] = factory
}

// Resolve obtains a filesystem handle for a path, dispatching on the path's
// scheme and authority. Scheme-less paths resolve to the "file" backend.
//
// A new handle is resolved per call; whether connections are pooled across
// handles is the underlying client library's decision. Callers own the
// returned handle and must close it.
//
// Returns ErrUnavailable if the scheme is unknown or the backend cannot
// be reached.
func Resolve(p Path, cfg Config) (FileSystem, error) {
	scheme := p.Scheme()
	if scheme == "" {
		scheme = "file"
	}

	schemesMu.RLock()
	factory, ok := schemes[scheme]
	schemesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no backend registered for scheme %q (forgotten import?)", ErrUnavailable, scheme)
	}

	fs, err := factory(p.WithName("/"), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s://%s: %v", ErrUnavailable, scheme, p.Authority(), err)
	}
	return fs, nil
}

// Schemes returns a sorted list of registered scheme names.
func Schemes() []string {
	schemesMu.RLock()
	defer schemesMu.RUnlock()

	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered returns true if a backend is registered for the scheme.
func IsRegistered(scheme string) bool {
	schemesMu.RLock()
	defer schemesMu.RUnlock()
	_, ok := schemes[scheme]
	return ok
}

// Unregister removes a registered scheme. It is primarily useful for testing.
// Returns true if the scheme was registered.
func Unregister(scheme string) bool {
	schemesMu.Lock()
	defer schemesMu.Unlock()

	if _, ok := schemes[scheme]; ok {
		delete(schemes, scheme)
		return true
	}
	return false
}
