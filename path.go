package dfskit

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Path is an immutable hierarchical identifier for a stored object:
// an optional URI scheme, an optional authority (host, host:port, or
// bucket name), and a slash-separated name.
//
// The zero Path is empty and invalid. Paths are small values and are
// passed and compared by value.
type Path struct {
	scheme    string
	authority string
	name      string
}

// ParsePath parses a string into a Path.
//
// Strings containing "://" are parsed as URIs (e.g. "hdfs://namenode:8020/data");
// anything else is treated as a bare name with no scheme or authority.
// Returns ErrInvalidPath for malformed URIs or empty input.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if !strings.Contains(s, "://") {
		return Path{name: cleanName(s)}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Path{}, fmt.Errorf("%w: %q: %v", ErrInvalidPath, s, err)
	}
	if u.Scheme == "" {
		return Path{}, fmt.Errorf("%w: %q: missing scheme", ErrInvalidPath, s)
	}
	name := u.Path
	if name == "" {
		name = "/"
	}
	return Path{scheme: u.Scheme, authority: u.Host, name: cleanName(name)}, nil
}

// BuildPath parses the first element as the base path and folds the remaining
// elements onto it left-to-right, each producing a child of the previous result.
// Folding is associative: BuildPath(a, b, c) equals BuildPath(a, b) joined with c.
func BuildPath(elem ...string) (Path, error) {
	if len(elem) == 0 {
		return Path{}, fmt.Errorf("%w: no path elements", ErrInvalidPath)
	}
	p, err := ParsePath(elem[0])
	if err != nil {
		return Path{}, err
	}
	return p.Join(elem[1:]...), nil
}

// Join returns a child path with the given elements appended to the name.
// Elements are treated as relative names; scheme and authority are preserved.
// The receiver is not modified.
func (p Path) Join(elem ...string) Path {
	if len(elem) == 0 {
		return p
	}
	parts := append([]string{p.name}, elem...)
	return Path{scheme: p.scheme, authority: p.authority, name: path.Join(parts...)}
}

// Scheme returns the URI scheme, or "" for scheme-less paths.
func (p Path) Scheme() string { return p.scheme }

// Authority returns the URI authority (host:port or bucket), or "".
func (p Path) Authority() string { return p.authority }

// Name returns the slash-separated name component of the path.
func (p Path) Name() string { return p.name }

// Base returns the last element of the path name.
func (p Path) Base() string { return path.Base(p.name) }

// Ext returns the trailing file name extension, including the dot, or "".
func (p Path) Ext() string { return path.Ext(p.Base()) }

// IsRoot returns true if the path has no parent.
func (p Path) IsRoot() bool {
	return p.name == "/" || p.name == "." || p.name == ""
}

// Parent returns the parent path. The second return value is false when the
// path is a root and has no parent.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Path{}, false
	}
	dir := path.Dir(p.name)
	if dir == p.name {
		return Path{}, false
	}
	return Path{scheme: p.scheme, authority: p.authority, name: dir}, true
}

// WithName returns a path with the same scheme and authority but a different name.
func (p Path) WithName(name string) Path {
	return Path{scheme: p.scheme, authority: p.authority, name: cleanName(name)}
}

// String returns the canonical string form of the path. Parsing the result
// yields an equal Path.
func (p Path) String() string {
	if p.scheme == "" && p.authority == "" {
		return p.name
	}
	name := p.name
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return p.scheme + "://" + p.authority + name
}

func cleanName(name string) string {
	cleaned := path.Clean(name)
	if cleaned == "" {
		return "."
	}
	return cleaned
}
