// Package sftp provides the SFTP backend for dfskit, registered under the
// "sftp" scheme and built on github.com/pkg/sftp.
//
// The server address comes from the path authority ("sftp://host:22/data");
// the port defaults to 22. Credentials are supplied through configuration:
//
//	cfg := dfskit.DefaultConfig().
//		With(sftp.ConfigUser, "deploy").
//		With(sftp.ConfigKeyFile, "/home/deploy/.ssh/id_ed25519")
package sftp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.Register("sftp", New)
}

// Configuration keys understood by the SFTP backend.
const (
	// ConfigUser is the SSH username (required).
	ConfigUser = "sftp.user"

	// ConfigPassword is the SSH password. Either a password or a key file
	// must be provided.
	ConfigPassword = "sftp.password"

	// ConfigKeyFile is the path to an SSH private key file.
	ConfigKeyFile = "sftp.key.file"

	// ConfigKeyPassphrase is the passphrase for an encrypted private key.
	ConfigKeyPassphrase = "sftp.key.passphrase"

	// ConfigTimeoutSeconds is the connection timeout in seconds. Default: 30.
	ConfigTimeoutSeconds = "sftp.timeout.seconds"
)

// FileSystem implements dfskit.FileSystem over an SFTP session.
type FileSystem struct {
	base       dfskit.Path
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	closed     bool
	mu         sync.RWMutex
}

// New dials the SSH server named by the base path's authority and opens an
// SFTP session on it.
//
// NOTE: host key verification is not performed. Restrict use to trusted
// networks.
func New(base dfskit.Path, cfg dfskit.Config) (dfskit.FileSystem, error) {
	addr := base.Authority()
	if addr == "" {
		return nil, fmt.Errorf("sftp: no host in path authority")
	}
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}

	user := cfg.GetDefault(ConfigUser, "")
	if user == "" {
		return nil, fmt.Errorf("sftp: %s is required", ConfigUser)
	}

	var authMethods []ssh.AuthMethod
	if password, ok := cfg.Get(ConfigPassword); ok {
		authMethods = append(authMethods, ssh.Password(password))
	}
	if keyFile, ok := cfg.Get(ConfigKeyFile); ok {
		keyAuth, err := keyFileAuth(keyFile, cfg.GetDefault(ConfigKeyPassphrase, ""))
		if err != nil {
			return nil, fmt.Errorf("sftp: loading key file: %w", err)
		}
		authMethods = append(authMethods, keyAuth)
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("sftp: no authentication method configured (%s or %s required)", ConfigPassword, ConfigKeyFile)
	}

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		Timeout:         time.Duration(cfg.Int(ConfigTimeoutSeconds, 30)) * time.Second,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // G106: see package note
	}

	sshClient, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("sftp: SSH connection to %s failed: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("sftp: opening SFTP session: %w", err)
	}

	return &FileSystem{base: base, sshClient: sshClient, sftpClient: sftpClient}, nil
}

func keyFileAuth(keyFile, passphrase string) (ssh.AuthMethod, error) {
	keyData, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyData)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

// Open opens the named file for reading.
func (fs *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	info, err := fs.sftpClient.Stat(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("sftp: open %s: is a directory", name)
	}

	f, err := fs.sftpClient.Open(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	return f, nil
}

// Create opens the named file for writing, creating parent directories
// as needed.
func (fs *FileSystem) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	if dir := path.Dir(name); dir != "/" && dir != "." {
		if err := fs.sftpClient.MkdirAll(dir); err != nil {
			return nil, translateError(err, dir)
		}
	}

	f, err := fs.sftpClient.Create(name)
	if err != nil {
		return nil, translateError(err, name)
	}
	return f, nil
}

// Stat returns metadata for the named file or directory.
func (fs *FileSystem) Stat(ctx context.Context, name string) (*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	info, err := fs.sftpClient.Stat(name)
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

	infos, err := fs.sftpClient.ReadDir(name)
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

// MkdirAll creates the named directory and any missing ancestors. The perm
// argument is applied best-effort after creation.
func (fs *FileSystem) MkdirAll(ctx context.Context, name string, perm os.FileMode) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if err := fs.sftpClient.MkdirAll(name); err != nil {
		return translateError(err, name)
	}
	if perm != 0 {
		_ = fs.sftpClient.Chmod(name, perm)
	}
	return nil
}

// Rename renames oldname to newname. An existing destination fails with
// ErrAlreadyExists.
func (fs *FileSystem) Rename(ctx context.Context, oldname, newname string) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	if _, err := fs.sftpClient.Stat(newname); err == nil {
		return fmt.Errorf("%w: %s", dfskit.ErrAlreadyExists, newname)
	}
	if err := fs.sftpClient.Rename(oldname, newname); err != nil {
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

	info, err := fs.sftpClient.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, translateError(err, name)
	}
	if err := fs.deleteTree(name, info.IsDir()); err != nil {
		return false, err
	}
	return true, nil
}

// deleteTree removes a file, or a directory bottom-up; the SFTP protocol
// has no recursive remove.
func (fs *FileSystem) deleteTree(name string, isDir bool) error {
	if !isDir {
		if err := fs.sftpClient.Remove(name); err != nil && !os.IsNotExist(err) {
			return translateError(err, name)
		}
		return nil
	}

	infos, err := fs.sftpClient.ReadDir(name)
	if err != nil {
		return translateError(err, name)
	}
	for _, info := range infos {
		if err := fs.deleteTree(path.Join(name, info.Name()), info.IsDir()); err != nil {
			return err
		}
	}
	if err := fs.sftpClient.RemoveDirectory(name); err != nil && !os.IsNotExist(err) {
		return translateError(err, name)
	}
	return nil
}

// Close closes the SFTP session and the SSH connection beneath it.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	err := fs.sftpClient.Close()
	if cerr := fs.sshClient.Close(); err == nil {
		err = cerr
	}
	return err
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
		return fmt.Errorf("sftp: %s: %w", name, err)
	}
}

var _ dfskit.FileSystem = (*FileSystem)(nil)
