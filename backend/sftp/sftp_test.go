package sftp_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/dfskit/dfskit"
	"github.com/dfskit/dfskit/backend/sftp"
)

func base(t *testing.T, uri string) dfskit.Path {
	t.Helper()
	p, err := dfskit.ParsePath(uri)
	if err != nil {
		t.Fatalf("ParsePath(%q) failed: %v", uri, err)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	// No host.
	if _, err := sftp.New(base(t, "sftp:///data"), dfskit.DefaultConfig()); err == nil {
		t.Error("New without host succeeded")
	}

	// No user.
	if _, err := sftp.New(base(t, "sftp://host/data"), dfskit.DefaultConfig()); err == nil {
		t.Error("New without user succeeded")
	}

	// No authentication method.
	cfg := dfskit.DefaultConfig().With(sftp.ConfigUser, "deploy")
	_, err := sftp.New(base(t, "sftp://host/data"), cfg)
	if err == nil || !strings.Contains(err.Error(), "authentication") {
		t.Errorf("New without auth = %v", err)
	}
}

func TestNewBadKeyFile(t *testing.T) {
	cfg := dfskit.DefaultConfig().
		With(sftp.ConfigUser, "deploy").
		With(sftp.ConfigKeyFile, filepath.Join(t.TempDir(), "missing-key"))

	if _, err := sftp.New(base(t, "sftp://host/data"), cfg); err == nil {
		t.Error("New with missing key file succeeded")
	}
}
