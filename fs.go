// Package dfskit is a convenience layer over distributed-filesystem client
// libraries. It provides path construction, scheme-keyed filesystem
// resolution, codec-aware streams, directory and bulk operations, and lazy
// sequence-file record iteration as simple functions.
//
// dfskit is a thin façade: every operation delegates to an underlying client
// (HDFS, SFTP, S3, the local filesystem) resolved from the path's scheme and
// authority. It introduces no caching, retries, or background work of its own.
//
// Basic usage:
//
//	import _ "github.com/dfskit/dfskit/backend/hdfs"
//
//	err := dfskit.WriteLines(ctx, "hdfs://namenode:8020/logs/out.gz",
//		[]string{"alpha", "beta"}, nil)
//
//	err = dfskit.ReadLines(ctx, "hdfs://namenode:8020/logs/out.gz",
//		func(line string) error {
//			fmt.Println(line)
//			return nil
//		})
//
// Backends register themselves when imported, like database/sql drivers.
package dfskit

import (
	"context"
	"io"
	"os"
)

// FileSystem is a resolved handle to a single filesystem, bound to one
// scheme and authority. Implementations live in the backend packages.
//
// Names passed to FileSystem methods are the name component of a Path;
// scheme and authority were consumed during resolution.
//
// Implementations are safe for concurrent use. All methods accept a
// context.Context for cancellation; whether cancellation interrupts an
// in-flight call depends on the underlying client.
type FileSystem interface {
	// Open opens the named file for reading.
	// Returns ErrNotFound if the name does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Create opens the named file for writing, creating or truncating it.
	// Parent directories are created as needed.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Stat returns metadata for the named file or directory.
	// Returns ErrNotFound if the name does not exist.
	Stat(ctx context.Context, name string) (*FileStatus, error)

	// ReadDir lists the immediate children of the named directory,
	// sorted by name. Returns ErrNotFound if the directory does not exist.
	ReadDir(ctx context.Context, name string) ([]*FileStatus, error)

	// MkdirAll creates the named directory along with any missing ancestors.
	// It is idempotent: an existing directory is not an error.
	MkdirAll(ctx context.Context, name string, perm os.FileMode) error

	// Rename renames oldname to newname. Returns ErrNotFound if oldname
	// does not exist and ErrAlreadyExists if newname does.
	Rename(ctx context.Context, oldname, newname string) error

	// Delete removes the named file or directory tree recursively.
	// Returns (false, nil) if the name does not exist (idempotent).
	Delete(ctx context.Context, name string) (bool, error)

	// Close releases the handle. After Close, other methods return ErrClosed.
	Close() error
}

// Appender is implemented by filesystems that support appending to an
// existing file (e.g. HDFS).
type Appender interface {
	Append(ctx context.Context, name string) (io.WriteCloser, error)
}

// LocalCopier is implemented by filesystems with a native local-copy path
// (e.g. the HDFS client's CopyToRemote/CopyToLocal). The bulk copy helpers
// use it when present and fall back to streaming otherwise.
type LocalCopier interface {
	CopyFromLocalFile(ctx context.Context, local, name string) error
	CopyToLocalFile(ctx context.Context, name, local string) error
}
