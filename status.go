package dfskit

import (
	"os"
	"time"
)

// FileStatus is a read-only snapshot of metadata for a path at the time of
// query. It is not kept consistent afterwards; callers re-stat when they
// need fresh values.
type FileStatus struct {
	// Path is the full path of the entry, including scheme and authority.
	Path Path

	// Size is the length in bytes, or -1 when unknown.
	Size int64

	// Mode holds the permission bits, when the backend reports them.
	Mode os.FileMode

	// ModTime is the last modification time, or the zero time when unknown.
	ModTime time.Time

	// Dir reports whether the entry is a directory.
	Dir bool
}

// Name returns the base name of the entry.
func (s *FileStatus) Name() string { return s.Path.Base() }

// IsDir reports whether the entry is a directory.
func (s *FileStatus) IsDir() bool { return s.Dir }
