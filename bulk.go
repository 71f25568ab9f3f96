package dfskit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// CopyFromLocal copies a local file into the resolved destination filesystem
// and returns the final destination path. When the destination is an
// existing directory the file is placed under it with its own base name.
//
// Without WithOverwrite, an existing destination fails with ErrAlreadyExists.
// Backends with a native local-copy fast path (HDFS) are used when available;
// otherwise the content is streamed through this process.
func CopyFromLocal(ctx context.Context, local, dst string, opts ...Option) (Path, error) {
	o := applyOptions(opts)
	p, fs, err := resolvePath(dst, o)
	if err != nil {
		return Path{}, err
	}
	defer func() { _ = fs.Close() }()

	info, err := os.Stat(local)
	if err != nil {
		if os.IsNotExist(err) {
			return Path{}, fmt.Errorf("%w: %s", ErrNotFound, local)
		}
		return Path{}, err
	}
	if info.IsDir() {
		return Path{}, fmt.Errorf("%w: recursive local copy of %s", ErrNotSupported, local)
	}

	target := p
	if st, err := fs.Stat(ctx, p.Name()); err == nil && st.IsDir() {
		target = p.Join(filepath.Base(local))
	}

	if !o.overwrite {
		if _, err := fs.Stat(ctx, target.Name()); err == nil {
			return Path{}, fmt.Errorf("%w: %s", ErrAlreadyExists, target)
		} else if !IsNotFound(err) {
			return Path{}, err
		}
	}

	o.log().Debug("copying from local",
		slog.String("src", local),
		slog.String("dst", target.String()),
		slog.Int64("size", info.Size()))

	if lc, ok := fs.(LocalCopier); ok {
		if err := lc.CopyFromLocalFile(ctx, local, target.Name()); err != nil {
			return Path{}, err
		}
		return target, nil
	}

	src, err := os.Open(local)
	if err != nil {
		return Path{}, err
	}
	defer func() { _ = src.Close() }()

	w, err := fs.Create(ctx, target.Name())
	if err != nil {
		return Path{}, err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return Path{}, err
	}
	if err := w.Close(); err != nil {
		return Path{}, err
	}
	return target, nil
}

// CopyToLocal copies a remote file to the local filesystem and returns the
// final local path. When the local destination is an existing directory the
// file is placed under it with its own base name. Collision handling follows
// local create-or-truncate semantics.
func CopyToLocal(ctx context.Context, src, local string, opts ...Option) (string, error) {
	o := applyOptions(opts)
	p, fs, err := resolvePath(src, o)
	if err != nil {
		return "", err
	}
	defer func() { _ = fs.Close() }()

	if info, err := os.Stat(local); err == nil && info.IsDir() {
		local = filepath.Join(local, p.Base())
	}

	o.log().Debug("copying to local",
		slog.String("src", p.String()),
		slog.String("dst", local))

	if lc, ok := fs.(LocalCopier); ok {
		if err := lc.CopyToLocalFile(ctx, p.Name(), local); err != nil {
			return "", err
		}
		return local, nil
	}

	r, err := fs.Open(ctx, p.Name())
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	w, err := os.Create(local)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return local, nil
}

// CopyMerge concatenates every non-directory child of srcDir into a single
// destination file, in listing order (lexicographic by entry name). Callers
// needing a specific shard order must name shards accordingly.
//
// WithOverwrite deletes an existing destination first; otherwise a collision
// fails with ErrAlreadyExists. WithDeleteSource removes srcDir after a
// successful merge. Bytes are copied raw; no codec is applied.
func CopyMerge(ctx context.Context, srcDir, dst string, opts ...Option) error {
	o := applyOptions(opts)
	sp, srcFS, err := resolvePath(srcDir, o)
	if err != nil {
		return err
	}
	defer func() { _ = srcFS.Close() }()

	dp, dstFS, err := resolvePath(dst, o)
	if err != nil {
		return err
	}
	defer func() { _ = dstFS.Close() }()

	if o.overwrite {
		if _, err := dstFS.Delete(ctx, dp.Name()); err != nil {
			return err
		}
	} else if _, err := dstFS.Stat(ctx, dp.Name()); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, dp)
	} else if !IsNotFound(err) {
		return err
	}

	entries, err := srcFS.ReadDir(ctx, sp.Name())
	if err != nil {
		return err
	}

	log := o.log()
	log.Debug("merging directory",
		slog.String("src", sp.String()),
		slog.String("dst", dp.String()),
		slog.Int("entries", len(entries)))

	w, err := dstFS.Create(ctx, dp.Name())
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		r, err := srcFS.Open(ctx, entry.Path.Name())
		if err != nil {
			_ = w.Close()
			return err
		}
		n, err := io.Copy(w, r)
		if cerr := r.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = w.Close()
			return err
		}
		log.Debug("merged shard", slog.String("path", entry.Path.String()), slog.Int64("bytes", n))
	}

	if err := w.Close(); err != nil {
		return err
	}

	if o.deleteSource {
		if _, err := srcFS.Delete(ctx, sp.Name()); err != nil {
			return err
		}
	}
	return nil
}

// Rename renames src to dst within a single filesystem. With WithOverwrite,
// an existing destination is deleted first; otherwise the collision fails
// with ErrAlreadyExists. Renaming across filesystems is not supported.
func Rename(ctx context.Context, src, dst string, opts ...Option) error {
	o := applyOptions(opts)
	sp, err := ParsePath(src)
	if err != nil {
		return err
	}
	dp, err := ParsePath(dst)
	if err != nil {
		return err
	}
	if sp.Scheme() != dp.Scheme() || sp.Authority() != dp.Authority() {
		return fmt.Errorf("%w: rename across filesystems (%s -> %s)", ErrNotSupported, sp, dp)
	}

	fs, err := Resolve(sp, o.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = fs.Close() }()

	if o.overwrite {
		if _, err := fs.Delete(ctx, dp.Name()); err != nil {
			return err
		}
	}

	o.log().Debug("renaming",
		slog.String("src", sp.String()),
		slog.String("dst", dp.String()),
		slog.Bool("overwrite", o.overwrite))

	return fs.Rename(ctx, sp.Name(), dp.Name())
}

// Delete removes a path recursively. Deleting a missing path is not an
// error: the call returns (false, nil), and callers that need to distinguish
// "deleted something" from "nothing there" check the boolean.
func Delete(ctx context.Context, path string, opts ...Option) (bool, error) {
	o := applyOptions(opts)
	var deleted bool
	err := withFS(path, o, func(p Path, fs FileSystem) error {
		var err error
		deleted, err = fs.Delete(ctx, p.Name())
		if err == nil {
			o.log().Debug("deleted", slog.String("path", p.String()), slog.Bool("existed", deleted))
		}
		return err
	})
	return deleted, err
}
