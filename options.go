package dfskit

import (
	"log/slog"

	"github.com/grokify/mogo/log/slogutil"
)

// Option configures a single dfskit operation.
type Option func(*opOptions)

type opOptions struct {
	cfg          Config
	logger       *slog.Logger
	overwrite    bool
	deleteSource bool
}

// WithConfig supplies the configuration used to resolve the filesystem for
// this operation. When omitted, DefaultConfig() is used.
func WithConfig(cfg Config) Option {
	return func(o *opOptions) { o.cfg = cfg }
}

// WithLogger sets a structured logger for the operation. When omitted, a
// null logger is used (no logging). Only the bulk operations log.
func WithLogger(l *slog.Logger) Option {
	return func(o *opOptions) { o.logger = l }
}

// WithOverwrite allows copy, merge, and rename operations to replace an
// existing destination. Without it a destination collision fails with
// ErrAlreadyExists.
func WithOverwrite() Option {
	return func(o *opOptions) { o.overwrite = true }
}

// WithDeleteSource makes CopyMerge remove the source directory after a
// successful merge.
func WithDeleteSource() Option {
	return func(o *opOptions) { o.deleteSource = true }
}

func applyOptions(opts []Option) *opOptions {
	o := &opOptions{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *opOptions) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slogutil.Null()
}

// resolvePath normalizes a path string and resolves its filesystem.
func resolvePath(s string, o *opOptions) (Path, FileSystem, error) {
	p, err := ParsePath(s)
	if err != nil {
		return Path{}, nil, err
	}
	fs, err := Resolve(p, o.cfg)
	if err != nil {
		return Path{}, nil, err
	}
	return p, fs, nil
}
