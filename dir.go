package dfskit

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
)

// withFS resolves the filesystem for a path, runs fn, and releases the handle.
func withFS(path string, o *opOptions, fn func(p Path, fs FileSystem) error) error {
	p, fs, err := resolvePath(path, o)
	if err != nil {
		return err
	}
	defer func() { _ = fs.Close() }()
	return fn(p, fs)
}

// Status returns the file status for a path, or (nil, nil) when the path
// does not exist. Absence is not an error; other failures (permission,
// connectivity) are.
func Status(ctx context.Context, path string, opts ...Option) (*FileStatus, error) {
	var status *FileStatus
	err := withFS(path, applyOptions(opts), func(p Path, fs FileSystem) error {
		st, err := fs.Stat(ctx, p.Name())
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return err
		}
		status = st
		return nil
	})
	return status, err
}

// Exists reports whether a path exists. Absence is a normal false result.
func Exists(ctx context.Context, path string, opts ...Option) (bool, error) {
	st, err := Status(ctx, path, opts...)
	return st != nil, err
}

// IsDir reports whether a path exists and is a directory.
func IsDir(ctx context.Context, path string, opts ...Option) (bool, error) {
	st, err := Status(ctx, path, opts...)
	return st != nil && st.IsDir(), err
}

// IsFile reports whether a path exists and is a regular file.
func IsFile(ctx context.Context, path string, opts ...Option) (bool, error) {
	st, err := Status(ctx, path, opts...)
	return st != nil && !st.IsDir(), err
}

// Size returns the length of a path in bytes, or -1 when the path does
// not exist.
func Size(ctx context.Context, path string, opts ...Option) (int64, error) {
	st, err := Status(ctx, path, opts...)
	if err != nil || st == nil {
		return -1, err
	}
	return st.Size, nil
}

// Mkdirs creates a directory and all missing ancestors. It is idempotent:
// an existing directory is not an error and its contents are untouched.
func Mkdirs(ctx context.Context, path string, opts ...Option) error {
	return withFS(path, applyOptions(opts), func(p Path, fs FileSystem) error {
		return fs.MkdirAll(ctx, p.Name(), 0755)
	})
}

// MakeParents creates the parent chain of a path, applying perm to created
// directories (0 means the backend default). Returns (false, nil) without
// side effects when the path is a root and has no parent.
func MakeParents(ctx context.Context, path string, perm os.FileMode, opts ...Option) (bool, error) {
	o := applyOptions(opts)
	p, err := ParsePath(path)
	if err != nil {
		return false, err
	}
	parent, ok := p.Parent()
	if !ok {
		return false, nil
	}
	if perm == 0 {
		perm = 0755
	}

	fs, err := Resolve(p, o.cfg)
	if err != nil {
		return false, err
	}
	defer func() { _ = fs.Close() }()

	if err := fs.MkdirAll(ctx, parent.Name(), perm); err != nil {
		return false, err
	}
	return true, nil
}

// ListStatus lists entries under a path.
//
// Non-recursive, it returns the immediate children sorted by name.
// Recursive, it performs a depth-first walk in which directory entries are
// replaced by their expansion: only leaf files are yielded, and empty
// directories contribute nothing. This matches the shard-enumeration use
// where intermediate directory nodes are never interesting on their own.
func ListStatus(ctx context.Context, path string, recursive bool, opts ...Option) ([]*FileStatus, error) {
	var entries []*FileStatus
	err := withFS(path, applyOptions(opts), func(p Path, fs FileSystem) error {
		if !recursive {
			var err error
			entries, err = fs.ReadDir(ctx, p.Name())
			return err
		}
		return listDeep(ctx, fs, p.Name(), &entries)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func listDeep(ctx context.Context, fs FileSystem, name string, out *[]*FileStatus) error {
	children, err := fs.ReadDir(ctx, name)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsDir() {
			if err := listDeep(ctx, fs, child.Path.Name(), out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, child)
	}
	return nil
}

// GlobStatus lists entries matching a glob pattern. The pattern may carry a
// scheme and authority prefix ("hdfs://nn:8020/data/part-*"); the remainder
// is matched with '/'-separated glob semantics where '*' does not cross
// path separators. Entries whose base name begins with '.' (checksum and
// other hidden sidecars) are never returned.
//
// Returns an empty slice when nothing matches.
func GlobStatus(ctx context.Context, pattern string, opts ...Option) ([]*FileStatus, error) {
	o := applyOptions(opts)
	base, namePattern, err := splitPattern(pattern)
	if err != nil {
		return nil, err
	}

	g, err := glob.Compile(namePattern, '/')
	if err != nil {
		return nil, fmt.Errorf("%w: bad glob %q: %v", ErrInvalidPath, pattern, err)
	}

	fs, err := Resolve(base, o.cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fs.Close() }()

	root := literalPrefix(namePattern)
	matches := []*FileStatus{}
	if err := globWalk(ctx, fs, root, g, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// globWalk walks the tree under name, collecting entries whose full name
// matches g. Directories are visited regardless of whether they match, since
// a non-matching directory may contain matching children.
func globWalk(ctx context.Context, fs FileSystem, name string, g glob.Glob, out *[]*FileStatus) error {
	children, err := fs.ReadDir(ctx, name)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	for _, child := range children {
		if strings.HasPrefix(child.Name(), ".") {
			continue
		}
		if g.Match(child.Path.Name()) {
			*out = append(*out, child)
		}
		if child.IsDir() {
			if err := globWalk(ctx, fs, child.Path.Name(), g, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitPattern separates an optional scheme://authority prefix from the glob
// body without URI-parsing the body (glob metacharacters like '?' are not
// valid URI path characters).
func splitPattern(pattern string) (Path, string, error) {
	if pattern == "" {
		return Path{}, "", fmt.Errorf("%w: empty pattern", ErrInvalidPath)
	}
	idx := strings.Index(pattern, "://")
	if idx < 0 {
		return Path{}, pattern, nil
	}
	scheme := pattern[:idx]
	rest := pattern[idx+3:]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return Path{scheme: scheme, authority: rest, name: "/"}, "/", nil
	}
	base := Path{scheme: scheme, authority: rest[:slash], name: "/"}
	return base, rest[slash:], nil
}

// literalPrefix returns the deepest directory in the pattern that contains
// no glob metacharacters, used as the walk root.
func literalPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	literal := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.ContainsAny(seg, `*?[]{}\`) {
			break
		}
		literal = append(literal, seg)
	}
	prefix := strings.Join(literal, "/")
	if prefix == "" {
		if strings.HasPrefix(pattern, "/") {
			return "/"
		}
		return "."
	}
	// Drop the trailing segment: the last literal component is the entry
	// being matched, not a directory to list, unless the pattern continues
	// below it.
	if len(literal) == len(segments) && len(literal) > 1 {
		prefix = strings.Join(literal[:len(literal)-1], "/")
		if prefix == "" {
			prefix = "/"
		}
	}
	return prefix
}

// PartFiles enumerates the data shard outputs of a job directory: the
// non-directory entries whose path, below dir, contains a component with the
// "part-" prefix, in listing order. A leaf nested under a "part-"-named
// directory therefore counts as a shard. Marker and metadata files
// (_SUCCESS, _logs) are excluded.
func PartFiles(ctx context.Context, dir string, recursive bool, opts ...Option) ([]Path, error) {
	p, err := ParsePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := ListStatus(ctx, dir, recursive, opts...)
	if err != nil {
		return nil, err
	}

	prefix := p.Name()
	if prefix != "/" {
		prefix += "/"
	}

	parts := []Path{}
	for _, e := range entries {
		if e.IsDir() || !hasPartComponent(strings.TrimPrefix(e.Path.Name(), prefix)) {
			continue
		}
		parts = append(parts, e.Path)
	}
	return parts, nil
}

func hasPartComponent(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, "part-") {
			return true
		}
	}
	return false
}

// Touch creates an empty file at the path, truncating any existing content.
// Commonly used to write job marker files.
func Touch(ctx context.Context, path string, opts ...Option) error {
	return withFS(path, applyOptions(opts), func(p Path, fs FileSystem) error {
		w, err := fs.Create(ctx, p.Name())
		if err != nil {
			return err
		}
		return w.Close()
	})
}
