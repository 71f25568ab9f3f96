// Package snappy provides the snappy framing-format codec for dfskit,
// keyed on the ".snappy" filename extension. Importing the package
// registers the codec:
//
//	import _ "github.com/dfskit/dfskit/compress/snappy"
package snappy

import (
	"io"
	"sync"

	"github.com/klauspost/compress/snappy"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.RegisterCodec(Codec{})
}

// Codec implements dfskit.Codec for snappy streams.
type Codec struct{}

// Extension returns ".snappy".
func (Codec) Extension() string { return ".snappy" }

// NewReader wraps a raw stream with snappy decompression.
func (Codec) NewReader(r io.ReadCloser) (io.ReadCloser, error) {
	return &reader{sr: snappy.NewReader(r), closer: r}, nil
}

// NewWriter wraps a raw stream with snappy compression.
func (Codec) NewWriter(w io.WriteCloser) (io.WriteCloser, error) {
	return &writer{sw: snappy.NewBufferedWriter(w), closer: w}, nil
}

type reader struct {
	sr     *snappy.Reader
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
	return r.sr.Read(p)
}

func (r *reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.closer.Close()
}

type writer struct {
	sw     *snappy.Writer
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
	return w.sw.Write(p)
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.sw.Close(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

var _ dfskit.Codec = Codec{}
