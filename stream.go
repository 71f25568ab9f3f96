package dfskit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// DefaultBufferSize is the default buffer size for line readers and writers.
const DefaultBufferSize = 64 * 1024 // 64KB

// OpenRead opens a byte stream reading from the given path.
//
// The raw stream from the resolved filesystem is wrapped with the matching
// codec's decompressor when the path name carries a registered extension
// (e.g. ".gz"); otherwise bytes pass through unchanged. Closing the returned
// reader releases the codec, the raw stream, and the filesystem handle.
//
// Returns ErrNotFound if the path does not exist and ErrPermissionDenied on
// access failure.
func OpenRead(ctx context.Context, path string, opts ...Option) (io.ReadCloser, error) {
	o := applyOptions(opts)
	p, fs, err := resolvePath(path, o)
	if err != nil {
		return nil, err
	}

	raw, err := fs.Open(ctx, p.Name())
	if err != nil {
		_ = fs.Close()
		return nil, err
	}

	r := raw
	if codec := ResolveCodec(p); codec != nil {
		r, err = codec.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			_ = fs.Close()
			return nil, err
		}
	}

	return &fsReadCloser{ReadCloser: r, fs: fs}, nil
}

// OpenWrite opens a byte stream writing to the given path, creating or
// truncating it. The stream is wrapped with the matching codec's compressor
// when the path name carries a registered extension. Closing the returned
// writer flushes all layers and releases the filesystem handle.
func OpenWrite(ctx context.Context, path string, opts ...Option) (io.WriteCloser, error) {
	o := applyOptions(opts)
	p, fs, err := resolvePath(path, o)
	if err != nil {
		return nil, err
	}

	raw, err := fs.Create(ctx, p.Name())
	if err != nil {
		_ = fs.Close()
		return nil, err
	}

	w := raw
	if codec := ResolveCodec(p); codec != nil {
		w, err = codec.NewWriter(raw)
		if err != nil {
			_ = raw.Close()
			_ = fs.Close()
			return nil, err
		}
	}

	return &fsWriteCloser{WriteCloser: w, fs: fs}, nil
}

// OpenAppend opens a byte stream appending to the given path. Only backends
// implementing Appender support it (HDFS); others fail with ErrNotSupported.
// A codec extension starts a fresh compressed member at the append point,
// which concatenates validly for gzip and zstd streams.
func OpenAppend(ctx context.Context, path string, opts ...Option) (io.WriteCloser, error) {
	o := applyOptions(opts)
	p, fs, err := resolvePath(path, o)
	if err != nil {
		return nil, err
	}

	a, ok := fs.(Appender)
	if !ok {
		_ = fs.Close()
		return nil, fmt.Errorf("%w: append on %s", ErrNotSupported, p.Scheme())
	}

	raw, err := a.Append(ctx, p.Name())
	if err != nil {
		_ = fs.Close()
		return nil, err
	}

	w := raw
	if codec := ResolveCodec(p); codec != nil {
		w, err = codec.NewWriter(raw)
		if err != nil {
			_ = raw.Close()
			_ = fs.Close()
			return nil, err
		}
	}

	return &fsWriteCloser{WriteCloser: w, fs: fs}, nil
}

// fsReadCloser couples a stream with the filesystem handle it was
// resolved from, so one Close releases both.
type fsReadCloser struct {
	io.ReadCloser
	fs FileSystem
}

func (c *fsReadCloser) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.fs.Close(); err == nil {
		err = cerr
	}
	return err
}

type fsWriteCloser struct {
	io.WriteCloser
	fs FileSystem
}

func (c *fsWriteCloser) Close() error {
	err := c.WriteCloser.Close()
	if cerr := c.fs.Close(); err == nil {
		err = cerr
	}
	return err
}

// LineReader reads text lines from a path, one Scan call at a time.
// It is a lazy, forward-only reader; restarting requires reopening.
type LineReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	closed  bool
	mu      sync.Mutex
}

// OpenLineReader opens a line-oriented reader over OpenRead.
// The maximum line length is the configured buffer size.
func OpenLineReader(ctx context.Context, path string, opts ...Option) (*LineReader, error) {
	o := applyOptions(opts)
	r, err := OpenRead(ctx, path, opts...)
	if err != nil {
		return nil, err
	}

	size := o.cfg.Int(ConfigBufferSize, DefaultBufferSize)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, size), size)

	return &LineReader{scanner: scanner, closer: r}, nil
}

// Scan advances to the next line. It returns false at end of input or on
// error; check Err after a false return.
func (r *LineReader) Scan() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	return r.scanner.Scan()
}

// Text returns the current line without its terminator.
func (r *LineReader) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanner.Text()
}

// Err returns the first error encountered while scanning, excluding io.EOF.
func (r *LineReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanner.Err()
}

// Close releases the underlying stream. It is safe to call more than once.
func (r *LineReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.closer.Close()
}

// LineWriter appends newline-terminated text lines to a path.
type LineWriter struct {
	w      *bufio.Writer
	closer io.Closer
	closed bool
	mu     sync.Mutex
}

// OpenLineWriter opens a line-oriented writer over OpenWrite.
func OpenLineWriter(ctx context.Context, path string, opts ...Option) (*LineWriter, error) {
	o := applyOptions(opts)
	w, err := OpenWrite(ctx, path, opts...)
	if err != nil {
		return nil, err
	}

	size := o.cfg.Int(ConfigBufferSize, DefaultBufferSize)
	return &LineWriter{w: bufio.NewWriterSize(w, size), closer: w}, nil
}

// WriteLine writes one line followed by a newline terminator.
func (w *LineWriter) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush flushes buffered lines to the underlying stream.
func (w *LineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.w.Flush()
}

// Close flushes any remaining data and closes the underlying stream.
// It is safe to call more than once.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.w.Flush(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

// ReadLines reads the path line by line, calling fn for each line in order.
// Iteration stops at the first error from fn, which is returned. The
// underlying stream is released on every exit path.
func ReadLines(ctx context.Context, path string, fn func(line string) error, opts ...Option) error {
	r, err := OpenLineReader(ctx, path, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	for r.Scan() {
		if err := fn(r.Text()); err != nil {
			return err
		}
	}
	return r.Err()
}

// WriteLines writes each line, transformed by the optional transform
// function (nil means identity), followed by a newline terminator. The
// output stream is closed on every exit path; the close error is reported
// when the write itself succeeded.
func WriteLines(ctx context.Context, path string, lines []string, transform func(string) string, opts ...Option) (err error) {
	w, err := OpenLineWriter(ctx, path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	for _, line := range lines {
		if transform != nil {
			line = transform(line)
		}
		if err = w.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}
