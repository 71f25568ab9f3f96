// Package zstd provides the Zstandard codec for dfskit, keyed on the ".zst"
// filename extension. Importing the package registers the codec:
//
//	import _ "github.com/dfskit/dfskit/compress/zstd"
//
// Zstandard offers better compression ratios than gzip at similar speeds
// and significantly faster decompression.
package zstd

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.RegisterCodec(Codec{})
}

// Codec implements dfskit.Codec for Zstandard streams.
type Codec struct{}

// Extension returns ".zst".
func (Codec) Extension() string { return ".zst" }

// NewReader wraps a raw stream with zstd decompression.
func (Codec) NewReader(r io.ReadCloser) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &reader{zr: zr, closer: r}, nil
}

// NewWriter wraps a raw stream with zstd compression at the default level.
func (Codec) NewWriter(w io.WriteCloser) (io.WriteCloser, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return &writer{zw: zw, closer: w}, nil
}

type reader struct {
	zr     *zstd.Decoder
	closer io.Closer
	closed bool
	mu     sync.Mutex
}

func (r *reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.ErrClosedPipe
	}
	return r.zr.Read(p)
}

func (r *reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	// Decoder.Close releases resources and does not return an error.
	r.zr.Close()
	return r.closer.Close()
}

type writer struct {
	zw     *zstd.Encoder
	closer io.Closer
	closed bool
	mu     sync.Mutex
}

func (w *writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.zw.Write(p)
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.zw.Close(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

var _ dfskit.Codec = Codec{}
