// Package gzip provides the gzip codec for dfskit, keyed on the ".gz"
// filename extension. Importing the package registers the codec:
//
//	import _ "github.com/dfskit/dfskit/compress/gzip"
package gzip

import (
	"compress/gzip"
	"io"
	"sync"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.RegisterCodec(Codec{})
}

// Codec implements dfskit.Codec for gzip streams.
type Codec struct{}

// Extension returns ".gz".
func (Codec) Extension() string { return ".gz" }

// NewReader wraps a raw stream with gzip decompression.
func (Codec) NewReader(r io.ReadCloser) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &reader{gr: gr, closer: r}, nil
}

// NewWriter wraps a raw stream with gzip compression at the default level.
func (Codec) NewWriter(w io.WriteCloser) (io.WriteCloser, error) {
	return &writer{gw: gzip.NewWriter(w), closer: w}, nil
}

// reader couples a gzip.Reader with the raw stream it decompresses, so one
// Close releases both layers.
type reader struct {
	gr     *gzip.Reader
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
	return r.gr.Read(p)
}

func (r *reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.gr.Close(); err != nil {
		_ = r.closer.Close()
		return err
	}
	return r.closer.Close()
}

type writer struct {
	gw     *gzip.Writer
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
	return w.gw.Write(p)
}

// Close flushes remaining compressed data, then closes both layers.
func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.gw.Close(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

var _ dfskit.Codec = Codec{}
