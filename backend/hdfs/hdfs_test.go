package hdfs_test

import (
	"strings"
	"testing"

	"github.com/dfskit/dfskit"
	"github.com/dfskit/dfskit/backend/hdfs"
)

func TestNewRequiresAddress(t *testing.T) {
	base, err := dfskit.ParsePath("hdfs:///data")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}
	_, err = hdfs.New(base, dfskit.DefaultConfig())
	if err == nil || !strings.Contains(err.Error(), "namenode") {
		t.Errorf("New without address = %v", err)
	}
}

func TestRegistered(t *testing.T) {
	if !dfskit.IsRegistered("hdfs") {
		t.Error("hdfs scheme not registered")
	}
}
