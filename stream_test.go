package dfskit_test

import (
	stdgzip "compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dfskit/dfskit"
	"github.com/dfskit/dfskit/backend/local"
	_ "github.com/dfskit/dfskit/compress/gzip"
)

// localConfig scopes the "file" backend to a fresh temp directory.
func localConfig(t *testing.T) (dfskit.Option, string) {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := dfskit.DefaultConfig().With(local.ConfigRoot, tmpDir)
	return dfskit.WithConfig(cfg), tmpDir
}

func TestWriteReadLines(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	lines := []string{"alpha", "beta", "gamma"}
	if err := dfskit.WriteLines(ctx, "/data/lines.txt", lines, nil, opt); err != nil {
		t.Fatalf("WriteLines failed: %v", err)
	}

	var got []string
	err := dfskit.ReadLines(ctx, "/data/lines.txt", func(line string) error {
		got = append(got, line)
		return nil
	}, opt)
	if err != nil {
		t.Fatalf("ReadLines failed: %v", err)
	}
	if !reflect.DeepEqual(got, lines) {
		t.Errorf("ReadLines = %v, want %v", got, lines)
	}
}

func TestWriteLinesTransform(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	err := dfskit.WriteLines(ctx, "/data/upper.txt", []string{"a", "b"}, strings.ToUpper, opt)
	if err != nil {
		t.Fatalf("WriteLines failed: %v", err)
	}

	var got []string
	err = dfskit.ReadLines(ctx, "/data/upper.txt", func(line string) error {
		got = append(got, line)
		return nil
	}, opt)
	if err != nil {
		t.Fatalf("ReadLines failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("ReadLines = %v", got)
	}
}

func TestLinesGzipCodec(t *testing.T) {
	opt, tmpDir := localConfig(t)
	ctx := context.Background()

	lines := []string{"compressed", "content"}
	if err := dfskit.WriteLines(ctx, "/data/lines.txt.gz", lines, nil, opt); err != nil {
		t.Fatalf("WriteLines failed: %v", err)
	}

	// The stored bytes must be a valid gzip stream, not plain text.
	raw, err := os.Open(filepath.Join(tmpDir, "data", "lines.txt.gz"))
	if err != nil {
		t.Fatalf("opening stored file: %v", err)
	}
	defer func() { _ = raw.Close() }()

	zr, err := stdgzip.NewReader(raw)
	if err != nil {
		t.Fatalf("stored file is not gzip: %v", err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompressing stored file: %v", err)
	}
	if string(plain) != "compressed\ncontent\n" {
		t.Errorf("decompressed = %q", plain)
	}

	// And the codec-aware read path round-trips it.
	var got []string
	err = dfskit.ReadLines(ctx, "/data/lines.txt.gz", func(line string) error {
		got = append(got, line)
		return nil
	}, opt)
	if err != nil {
		t.Fatalf("ReadLines failed: %v", err)
	}
	if !reflect.DeepEqual(got, lines) {
		t.Errorf("ReadLines = %v, want %v", got, lines)
	}
}

func TestReadLinesCallbackError(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	if err := dfskit.WriteLines(ctx, "/data/x.txt", []string{"1", "2", "3"}, nil, opt); err != nil {
		t.Fatalf("WriteLines failed: %v", err)
	}

	stop := errors.New("stop")
	count := 0
	err := dfskit.ReadLines(ctx, "/data/x.txt", func(string) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	}, opt)
	if !errors.Is(err, stop) {
		t.Errorf("ReadLines error = %v, want stop", err)
	}
	if count != 2 {
		t.Errorf("callback ran %d times, want 2", count)
	}
}

func TestReadMissingFile(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	err := dfskit.ReadLines(ctx, "/data/absent.txt", func(string) error { return nil }, opt)
	if !dfskit.IsNotFound(err) {
		t.Errorf("ReadLines error = %v, want ErrNotFound", err)
	}
}

func TestLineWriterClosed(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	w, err := dfskit.OpenLineWriter(ctx, "/data/w.txt", opt)
	if err != nil {
		t.Fatalf("OpenLineWriter failed: %v", err)
	}
	if err := w.WriteLine("one"); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := w.WriteLine("two"); !errors.Is(err, dfskit.ErrClosed) {
		t.Errorf("WriteLine after Close = %v, want ErrClosed", err)
	}
	if err := w.Flush(); !errors.Is(err, dfskit.ErrClosed) {
		t.Errorf("Flush after Close = %v, want ErrClosed", err)
	}
}

func TestLineReaderManual(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	if err := dfskit.WriteLines(ctx, "/data/r.txt", []string{"x", "y"}, nil, opt); err != nil {
		t.Fatalf("WriteLines failed: %v", err)
	}

	r, err := dfskit.OpenLineReader(ctx, "/data/r.txt", opt)
	if err != nil {
		t.Fatalf("OpenLineReader failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	if !r.Scan() || r.Text() != "x" {
		t.Fatalf("first line = %q", r.Text())
	}
	if !r.Scan() || r.Text() != "y" {
		t.Fatalf("second line = %q", r.Text())
	}
	if r.Scan() {
		t.Error("Scan = true past end")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if r.Scan() {
		t.Error("Scan = true after Close")
	}
}

func TestOpenAppendUnsupported(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	if _, err := dfskit.OpenAppend(ctx, "/data/log.txt", opt); !dfskit.IsNotSupported(err) {
		t.Errorf("OpenAppend on file backend = %v, want ErrNotSupported", err)
	}
}

func TestOpenWriteRawBytes(t *testing.T) {
	opt, _ := localConfig(t)
	ctx := context.Background()

	w, err := dfskit.OpenWrite(ctx, "/data/raw.bin", opt)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	payload := []byte{0x00, 0x01, 0xff, 0xfe}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := dfskit.OpenRead(ctx, "/data/raw.bin", opt)
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !reflect.DeepEqual(got, payload) {
		t.Errorf("read back %v, want %v", got, payload)
	}
}
