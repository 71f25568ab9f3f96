// Package hdfs provides the HDFS backend for dfskit, registered under the
// "hdfs" scheme and built on github.com/colinmarc/hdfs.
//
// The namenode address comes from the path authority
// ("hdfs://namenode:8020/data"); a comma-separated authority names the
// namenodes of an HA pair. The "hdfs.user" configuration key sets the
// identity operations run as, defaulting to the current OS user.
package hdfs

import (
	"context"
	"fmt"
	"io"
	"os"
	osuser "os/user"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/colinmarc/hdfs/v2"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.Register("hdfs", New)
}

// Configuration keys understood by the HDFS backend.
const (
	// ConfigUser is the username operations run as. Default: current OS user.
	ConfigUser = "hdfs.user"

	// ConfigNamenodes is a comma-separated namenode address list, consulted
	// when the path authority is empty.
	ConfigNamenodes = "hdfs.namenodes"

	// ConfigUseDatanodeHostname makes data transfers connect to datanodes
	// by hostname instead of IP ("true"/"false"). Default: false.
	ConfigUseDatanodeHostname = "hdfs.use.datanode.hostname"
)

// FileSystem implements dfskit.FileSystem over an HDFS client connection.
type FileSystem struct {
	base   dfskit.Path
	client *hdfs.Client
	closed bool
	mu     sync.RWMutex
}

// New dials the namenode(s) for the base path and returns a handle.
func New(base dfskit.Path, cfg dfskit.Config) (dfskit.FileSystem, error) {
	addresses := base.Authority()
	if addresses == "" {
		addresses = cfg.GetDefault(ConfigNamenodes, "")
	}
	if addresses == "" {
		return nil, fmt.Errorf("hdfs: no namenode address in path or configuration")
	}

	user := cfg.GetDefault(ConfigUser, "")
	if user == "" {
		u, err := osuser.Current()
		if err != nil {
			return nil, fmt.Errorf("hdfs: determining current user: %w", err)
		}
		user = u.Username
	}

	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses:           strings.Split(addresses, ","),
		User:                user,
		UseDatanodeHostname: cfg.Bool(ConfigUseDatanodeHostname, false),
	})
	if err != nil {
		return nil, fmt.Errorf("hdfs: connecting to %s: %w", addresses, err)
	}

	return &FileSystem{base: base, client: client}, nil
}

// Open opens the named file for reading.
func (fs *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	info, err := fs.client.Stat(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("hdfs: open %s: is a directory", name)
	}

	f, err := fs.client.Open(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	return f, nil
}

// Create opens the named file for writing with default replication, block
// size, and permissions, creating parent directories as needed.
//
// HDFS writes are buffered and acknowledged asynchronously; Close must be
// called and its error checked before the file can be assumed durable.
func (fs *FileSystem) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	if dir := path.Dir(name); dir != "/" && dir != "." {
		if err := fs.client.MkdirAll(dir, 0755); err != nil {
			return nil, translateError(err, dir)
		}
	}

	// Create-or-truncate: HDFS create fails on an existing file, so an
	// existing one is removed first.
	if _, err := fs.client.Stat(name); err == nil {
		if err := fs.client.Remove(name); err != nil {
			return nil, translateError(err, name)
		}
	}

	w, err := fs.client.Create(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	return w, nil
}

// Append opens the named file for appending.
func (fs *FileSystem) Append(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	w, err := fs.client.Append(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	return w, nil
}

// Stat returns metadata for the named file or directory.
func (fs *FileSystem) Stat(ctx context.Context, name string) (*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	info, err := fs.client.Stat(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	return fs.status(name, info), nil
}

// ReadDir lists the immediate children of the named directory, sorted by name.
func (fs *FileSystem) ReadDir(ctx context.Context, name string) ([]*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	infos, err := fs.client.ReadDir(name)
	if err != nil {
		return nil, translateError(err, name)
	}

	statuses := make([]*dfskit.FileStatus, 0, len(infos))
	for _, info := range infos {
		statuses = append(statuses, fs.status(path.Join(name, info.Name()), info))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name() < statuses[j].Name() })
	return statuses, nil
}

// MkdirAll creates the named directory and any missing ancestors.
func (fs *FileSystem) MkdirAll(ctx context.Context, name string, perm os.FileMode) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if err := fs.client.MkdirAll(name, perm); err != nil {
		return translateError(err, name)
	}
	return nil
}

// Rename renames oldname to newname. An existing destination fails with
// ErrAlreadyExists.
func (fs *FileSystem) Rename(ctx context.Context, oldname, newname string) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if _, err := fs.client.Stat(newname); err == nil {
		return fmt.Errorf("%w: %s", dfskit.ErrAlreadyExists, newname)
	}
	if err := fs.client.Rename(oldname, newname); err != nil {
		return translateError(err, oldname)
	}
	return nil
}

// Delete removes the named file or directory tree recursively.
// Returns (false, nil) when the name does not exist.
func (fs *FileSystem) Delete(ctx context.Context, name string) (bool, error) {
	if err := fs.check(ctx); err != nil {
		return false, err
	}

	if _, err := fs.client.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, translateError(err, name)
	}
	// Remove refuses non-empty directories; RemoveAll issues the recursive
	// delete RPC.
	if err := fs.client.RemoveAll(name); err != nil {
		return false, translateError(err, name)
	}
	return true, nil
}

// CopyFromLocalFile uploads a local file using the client's native path,
// streaming block writes straight to the datanodes.
func (fs *FileSystem) CopyFromLocalFile(ctx context.Context, local, name string) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if dir := path.Dir(name); dir != "/" && dir != "." {
		if err := fs.client.MkdirAll(dir, 0755); err != nil {
			return translateError(err, dir)
		}
	}
	if _, err := fs.client.Stat(name); err == nil {
		if err := fs.client.Remove(name); err != nil {
			return translateError(err, name)
		}
	}
	if err := fs.client.CopyToRemote(local, name); err != nil {
		return translateError(err, name)
	}
	return nil
}

// CopyToLocalFile downloads a file using the client's native path.
func (fs *FileSystem) CopyToLocalFile(ctx context.Context, name, local string) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if err := fs.client.CopyToLocal(name, local); err != nil {
		return translateError(err, name)
	}
	return nil
}

// Close closes the namenode and datanode connections.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true
	return fs.client.Close()
}

func (fs *FileSystem) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return dfskit.ErrClosed
	}
	return nil
}

func (fs *FileSystem) status(name string, info os.FileInfo) *dfskit.FileStatus {
	size := info.Size()
	if info.IsDir() {
		size = -1
	}
	return &dfskit.FileStatus{
		Path:    fs.base.WithName(name),
		Size:    size,
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime(),
		Dir:     info.IsDir(),
	}
}

func translateError(err error, name string) error {
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %s", dfskit.ErrPermissionDenied, name)
	default:
		return fmt.Errorf("hdfs: %s: %w", name, err)
	}
}

var (
	_ dfskit.FileSystem  = (*FileSystem)(nil)
	_ dfskit.Appender    = (*FileSystem)(nil)
	_ dfskit.LocalCopier = (*FileSystem)(nil)
)
