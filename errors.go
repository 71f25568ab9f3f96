package dfskit

import "errors"

// Common errors returned by dfskit operations and filesystem backends.
var (
	// ErrInvalidPath is returned when a path or URI cannot be parsed.
	ErrInvalidPath = errors.New("dfskit: invalid path")

	// ErrUnavailable is returned when no filesystem can be resolved for a path,
	// either because the scheme is unknown or the backend cannot be reached.
	ErrUnavailable = errors.New("dfskit: filesystem unavailable")

	// ErrNotFound is returned when an operation requires a path to exist and it does not.
	ErrNotFound = errors.New("dfskit: not found")

	// ErrPermissionDenied is returned when access to a path is denied by the
	// underlying filesystem.
	ErrPermissionDenied = errors.New("dfskit: permission denied")

	// ErrAlreadyExists is returned on a destination collision when overwriting
	// was not requested (copy, rename).
	ErrAlreadyExists = errors.New("dfskit: already exists")

	// ErrFormat is returned when a sequence file is malformed.
	ErrFormat = errors.New("dfskit: malformed sequence file")

	// ErrNotSupported is returned when an operation is not supported by the backend.
	ErrNotSupported = errors.New("dfskit: operation not supported")

	// ErrClosed is returned when operating on a closed filesystem, reader, or writer.
	ErrClosed = errors.New("dfskit: closed")
)

// IsNotFound returns true if the error indicates a path was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied returns true if the error indicates permission was denied.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsAlreadyExists returns true if the error indicates a destination collision.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsNotSupported returns true if the error indicates an unsupported operation.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}
