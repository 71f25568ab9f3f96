package dfskit

import (
	"io"
	"sort"
	"sync"
)

// Codec is a pluggable compression strategy selected by filename extension.
// Implementations live in the compress/ packages and register themselves
// when imported.
type Codec interface {
	// Extension returns the filename extension the codec is keyed on,
	// including the leading dot (e.g. ".gz").
	Extension() string

	// NewReader wraps a raw stream with decompression. Closing the returned
	// reader closes the underlying stream.
	NewReader(r io.ReadCloser) (io.ReadCloser, error)

	// NewWriter wraps a raw stream with compression. Closing the returned
	// writer flushes and closes the underlying stream.
	NewWriter(w io.WriteCloser) (io.WriteCloser, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = make(map[string]Codec)
)

// RegisterCodec registers a codec under its extension. It is typically
// called from init() in compress packages. Panics on nil codecs and
// duplicate extensions.
func RegisterCodec(c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()

	if c == nil {
		panic("dfskit: RegisterCodec codec is nil")
	}
	ext := c.Extension()
	if _, dup := codecs[ext]; dup {
		panic("dfskit: RegisterCodec called twice for extension " + ext)
	}
	codecs[ext] = c
}

// ResolveCodec returns the codec matching the path's trailing name extension,
// or nil when no codec is registered for it. It is a pure function of the
// path and performs no I/O; nil means streams pass through unwrapped.
func ResolveCodec(p Path) Codec {
	ext := p.Ext()
	if ext == "" {
		return nil
	}

	codecsMu.RLock()
	defer codecsMu.RUnlock()
	return codecs[ext]
}

// CodecExtensions returns the registered extensions in sorted order.
func CodecExtensions() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	exts := make([]string, 0, len(codecs))
	for ext := range codecs {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
