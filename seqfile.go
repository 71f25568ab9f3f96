package dfskit

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/colinmarc/sequencefile"
)

// recordSource is the next-record protocol this layer drives. It is
// satisfied by sequencefile.Reader; the on-disk layout is never parsed here.
type recordSource interface {
	Scan() bool
	Key() []byte
	Value() []byte
	Err() error
}

// SequenceReader iterates over the key/value records of a binary sequence
// file, one record per Scan call. The sequence is finite, single-pass, and
// lazily decoded: consumption drives decoding.
//
// The underlying stream is closed automatically when the records are
// exhausted. Callers abandoning iteration early must call Close themselves;
// Close is idempotent and safe after exhaustion, so an unconditional
// defer Close is the recommended pattern.
type SequenceReader struct {
	src        recordSource
	closer     io.Closer
	keyClass   string
	valueClass string
	closed     bool
	err        error
}

// OpenSequenceFile opens a sequence file for record iteration. The file
// header is read eagerly to learn the declared key and value types; a
// missing or malformed header fails with ErrFormat.
//
// Sequence files carry their own block compression, so no path codec is
// applied to the stream.
func OpenSequenceFile(ctx context.Context, path string, opts ...Option) (*SequenceReader, error) {
	o := applyOptions(opts)
	raw, err := openRaw(ctx, path, o)
	if err != nil {
		return nil, err
	}

	sf := sequencefile.NewReader(bufio.NewReader(raw))
	if err := sf.ReadHeader(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}

	return &SequenceReader{
		src:        sf,
		closer:     raw,
		keyClass:   sf.Header.KeyClassName,
		valueClass: sf.Header.ValueClassName,
	}, nil
}

// Scan decodes the next record. It returns false when the records are
// exhausted or decoding fails, closing the underlying stream in either
// case; check Err after a false return.
func (r *SequenceReader) Scan() bool {
	if r.closed {
		return false
	}
	if r.src.Scan() {
		return true
	}
	if err := r.src.Err(); err != nil {
		r.err = fmt.Errorf("%w: %v", ErrFormat, err)
	}
	_ = r.Close()
	return false
}

// Key returns the raw bytes of the current record's key.
// The slice is valid until the next call to Scan.
func (r *SequenceReader) Key() []byte { return r.src.Key() }

// Value returns the raw bytes of the current record's value.
// The slice is valid until the next call to Scan.
func (r *SequenceReader) Value() []byte { return r.src.Value() }

// KeyClass returns the key type name declared in the file header.
func (r *SequenceReader) KeyClass() string { return r.keyClass }

// ValueClass returns the value type name declared in the file header.
func (r *SequenceReader) ValueClass() string { return r.valueClass }

// Err returns the first decoding error encountered, or nil after a clean
// exhaustion.
func (r *SequenceReader) Err() error { return r.err }

// Close releases the underlying stream. It is safe to call more than once
// and after exhaustion.
func (r *SequenceReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.closer.Close()
}

// ForEachRecord iterates a sequence file's records, calling fn with each
// key/value pair in order. Iteration stops at the first error from fn,
// which is returned. The underlying stream is released on every exit path,
// including early returns.
func ForEachRecord(ctx context.Context, path string, fn func(key, value []byte) error, opts ...Option) error {
	r, err := OpenSequenceFile(ctx, path, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	for r.Scan() {
		if err := fn(r.Key(), r.Value()); err != nil {
			return err
		}
	}
	return r.Err()
}

// openRaw opens the unwrapped byte stream for a path, coupling it with the
// resolved filesystem handle.
func openRaw(ctx context.Context, path string, o *opOptions) (io.ReadCloser, error) {
	p, fs, err := resolvePath(path, o)
	if err != nil {
		return nil, err
	}
	raw, err := fs.Open(ctx, p.Name())
	if err != nil {
		_ = fs.Close()
		return nil, err
	}
	return &fsReadCloser{ReadCloser: raw, fs: fs}, nil
}
