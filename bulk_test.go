package dfskit_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dfskit/dfskit"
	"github.com/dfskit/dfskit/backend/memory"
)

func readAll(t *testing.T, ctx context.Context, path string, opts ...dfskit.Option) string {
	t.Helper()
	r, err := dfskit.OpenRead(ctx, path, opts...)
	if err != nil {
		t.Fatalf("OpenRead(%q) failed: %v", path, err)
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll(%q) failed: %v", path, err)
	}
	return string(data)
}

func writeMem(t *testing.T, ctx context.Context, path, content string) {
	t.Helper()
	w, err := dfskit.OpenWrite(ctx, path)
	if err != nil {
		t.Fatalf("OpenWrite(%q) failed: %v", path, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("Write(%q) failed: %v", path, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close(%q) failed: %v", path, err)
	}
}

func TestCopyFromLocal(t *testing.T) {
	t.Cleanup(func() { memory.Reset("upload") })
	ctx := context.Background()

	localFile := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(localFile, []byte("local content"), 0644); err != nil {
		t.Fatalf("writing local file: %v", err)
	}

	dst, err := dfskit.CopyFromLocal(ctx, localFile, "mem://upload/data/input.txt")
	if err != nil {
		t.Fatalf("CopyFromLocal failed: %v", err)
	}
	if dst.String() != "mem://upload/data/input.txt" {
		t.Errorf("destination = %q", dst)
	}
	if got := readAll(t, ctx, "mem://upload/data/input.txt"); got != "local content" {
		t.Errorf("copied content = %q", got)
	}

	// A second copy without overwrite collides.
	if _, err := dfskit.CopyFromLocal(ctx, localFile, "mem://upload/data/input.txt"); !errors.Is(err, dfskit.ErrAlreadyExists) {
		t.Errorf("collision error = %v, want ErrAlreadyExists", err)
	}

	// With overwrite it replaces the destination.
	if err := os.WriteFile(localFile, []byte("v2"), 0644); err != nil {
		t.Fatalf("rewriting local file: %v", err)
	}
	if _, err := dfskit.CopyFromLocal(ctx, localFile, "mem://upload/data/input.txt", dfskit.WithOverwrite()); err != nil {
		t.Fatalf("overwriting CopyFromLocal failed: %v", err)
	}
	if got := readAll(t, ctx, "mem://upload/data/input.txt"); got != "v2" {
		t.Errorf("overwritten content = %q", got)
	}
}

func TestCopyFromLocalIntoDirectory(t *testing.T) {
	t.Cleanup(func() { memory.Reset("updir") })
	ctx := context.Background()

	localFile := filepath.Join(t.TempDir(), "report.csv")
	if err := os.WriteFile(localFile, []byte("a,b"), 0644); err != nil {
		t.Fatalf("writing local file: %v", err)
	}
	if err := dfskit.Mkdirs(ctx, "mem://updir/inbox"); err != nil {
		t.Fatalf("Mkdirs failed: %v", err)
	}

	// An existing directory destination places the file under it.
	dst, err := dfskit.CopyFromLocal(ctx, localFile, "mem://updir/inbox")
	if err != nil {
		t.Fatalf("CopyFromLocal failed: %v", err)
	}
	if dst.String() != "mem://updir/inbox/report.csv" {
		t.Errorf("destination = %q", dst)
	}
}

func TestCopyFromLocalErrors(t *testing.T) {
	t.Cleanup(func() { memory.Reset("uperr") })
	ctx := context.Background()

	if _, err := dfskit.CopyFromLocal(ctx, "/does/not/exist", "mem://uperr/x"); !dfskit.IsNotFound(err) {
		t.Errorf("missing local error = %v, want ErrNotFound", err)
	}
	if _, err := dfskit.CopyFromLocal(ctx, t.TempDir(), "mem://uperr/x"); !dfskit.IsNotSupported(err) {
		t.Errorf("directory local error = %v, want ErrNotSupported", err)
	}
}

func TestCopyToLocal(t *testing.T) {
	t.Cleanup(func() { memory.Reset("download") })
	ctx := context.Background()

	writeMem(t, ctx, "mem://download/data/out.txt", "remote content")

	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "out.txt")
	got, err := dfskit.CopyToLocal(ctx, "mem://download/data/out.txt", target)
	if err != nil {
		t.Fatalf("CopyToLocal failed: %v", err)
	}
	if got != target {
		t.Errorf("local path = %q, want %q", got, target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading local copy: %v", err)
	}
	if string(data) != "remote content" {
		t.Errorf("local copy = %q", data)
	}

	// An existing local directory destination places the file under it.
	got, err = dfskit.CopyToLocal(ctx, "mem://download/data/out.txt", tmpDir)
	if err != nil {
		t.Fatalf("CopyToLocal into dir failed: %v", err)
	}
	if got != filepath.Join(tmpDir, "out.txt") {
		t.Errorf("local path = %q", got)
	}
}

func TestCopyMerge(t *testing.T) {
	t.Cleanup(func() { memory.Reset("merge") })
	ctx := context.Background()

	// Shards concatenate in listing order: lexicographic by name.
	writeMem(t, ctx, "mem://merge/in/part-00002", "c")
	writeMem(t, ctx, "mem://merge/in/part-00000", "a")
	writeMem(t, ctx, "mem://merge/in/part-00001", "b")
	if err := dfskit.Mkdirs(ctx, "mem://merge/in/subdir"); err != nil {
		t.Fatalf("Mkdirs failed: %v", err)
	}

	if err := dfskit.CopyMerge(ctx, "mem://merge/in", "mem://merge/out.txt"); err != nil {
		t.Fatalf("CopyMerge failed: %v", err)
	}
	if got := readAll(t, ctx, "mem://merge/out.txt"); got != "abc" {
		t.Errorf("merged content = %q, want abc", got)
	}

	// A second merge without overwrite collides.
	if err := dfskit.CopyMerge(ctx, "mem://merge/in", "mem://merge/out.txt"); !errors.Is(err, dfskit.ErrAlreadyExists) {
		t.Errorf("collision error = %v, want ErrAlreadyExists", err)
	}
	if err := dfskit.CopyMerge(ctx, "mem://merge/in", "mem://merge/out.txt", dfskit.WithOverwrite()); err != nil {
		t.Fatalf("overwriting CopyMerge failed: %v", err)
	}
}

func TestCopyMergeDeleteSource(t *testing.T) {
	t.Cleanup(func() { memory.Reset("mvmerge") })
	ctx := context.Background()

	writeMem(t, ctx, "mem://mvmerge/in/part-00000", "x")
	writeMem(t, ctx, "mem://mvmerge/in/part-00001", "y")

	err := dfskit.CopyMerge(ctx, "mem://mvmerge/in", "mem://mvmerge/out.txt", dfskit.WithDeleteSource())
	if err != nil {
		t.Fatalf("CopyMerge failed: %v", err)
	}
	if got := readAll(t, ctx, "mem://mvmerge/out.txt"); got != "xy" {
		t.Errorf("merged content = %q", got)
	}
	if ok, err := dfskit.Exists(ctx, "mem://mvmerge/in"); err != nil || ok {
		t.Errorf("source survived delete-source merge: (%v, %v)", ok, err)
	}
}

func TestRename(t *testing.T) {
	t.Cleanup(func() { memory.Reset("mv") })
	ctx := context.Background()

	writeMem(t, ctx, "mem://mv/old.txt", "content")

	if err := dfskit.Rename(ctx, "mem://mv/old.txt", "mem://mv/new.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if ok, err := dfskit.Exists(ctx, "mem://mv/old.txt"); err != nil || ok {
		t.Errorf("source survived rename: (%v, %v)", ok, err)
	}
	if got := readAll(t, ctx, "mem://mv/new.txt"); got != "content" {
		t.Errorf("renamed content = %q", got)
	}

	// A destination collision fails without overwrite and succeeds with it.
	writeMem(t, ctx, "mem://mv/other.txt", "other")
	if err := dfskit.Rename(ctx, "mem://mv/other.txt", "mem://mv/new.txt"); !errors.Is(err, dfskit.ErrAlreadyExists) {
		t.Errorf("collision error = %v, want ErrAlreadyExists", err)
	}
	if err := dfskit.Rename(ctx, "mem://mv/other.txt", "mem://mv/new.txt", dfskit.WithOverwrite()); err != nil {
		t.Fatalf("overwriting Rename failed: %v", err)
	}
	if got := readAll(t, ctx, "mem://mv/new.txt"); got != "other" {
		t.Errorf("overwritten content = %q", got)
	}
}

func TestRenameAcrossFilesystems(t *testing.T) {
	ctx := context.Background()
	err := dfskit.Rename(ctx, "mem://a/x.txt", "file:///tmp/x.txt")
	if !dfskit.IsNotSupported(err) {
		t.Errorf("cross-filesystem rename error = %v, want ErrNotSupported", err)
	}
}

func TestDelete(t *testing.T) {
	t.Cleanup(func() { memory.Reset("del") })
	ctx := context.Background()

	writeMem(t, ctx, "mem://del/dir/a.txt", "a")
	writeMem(t, ctx, "mem://del/dir/b.txt", "b")

	deleted, err := dfskit.Delete(ctx, "mem://del/dir")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Error("Delete = false for existing directory")
	}
	if ok, err := dfskit.Exists(ctx, "mem://del/dir/a.txt"); err != nil || ok {
		t.Errorf("child survived recursive delete: (%v, %v)", ok, err)
	}

	// Deleting a missing path is a normal false result, not an error.
	deleted, err = dfskit.Delete(ctx, "mem://del/dir")
	if err != nil {
		t.Fatalf("Delete of missing path failed: %v", err)
	}
	if deleted {
		t.Error("Delete = true for missing path")
	}
}
