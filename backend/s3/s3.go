// Package s3 provides an S3-compatible backend for dfskit, registered
// under the "s3" scheme and built on the AWS SDK for Go v2.
//
// The bucket comes from the path authority ("s3://my-bucket/data/file").
// It works with AWS S3 and S3-compatible services (MinIO, Cloudflare R2,
// Wasabi, DigitalOcean Spaces) via the "s3.endpoint" and "s3.path.style"
// configuration keys.
//
// S3 has no real directories; a name is a directory when objects exist
// under it as a key prefix. MkdirAll is therefore a no-op and directory
// renames copy every object under the prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dfskit/dfskit"
)

func init() {
	dfskit.Register("s3", New)
}

// Configuration keys understood by the S3 backend.
const (
	// ConfigRegion is the AWS region.
	ConfigRegion = "s3.region"

	// ConfigEndpoint is a custom endpoint URL for S3-compatible services.
	ConfigEndpoint = "s3.endpoint"

	// ConfigAccessKeyID and ConfigSecretAccessKey supply static credentials.
	// When unset the SDK's default credential chain applies.
	ConfigAccessKeyID     = "s3.access.key.id"
	ConfigSecretAccessKey = "s3.secret.access.key"

	// ConfigSessionToken is the session token for temporary credentials.
	ConfigSessionToken = "s3.session.token"

	// ConfigPathStyle enables path-style addressing ("true"/"false"),
	// required by most S3-compatible services. Default: false.
	ConfigPathStyle = "s3.path.style"

	// ConfigPartSize is the multipart upload part size in bytes.
	// Default: 5 MiB.
	ConfigPartSize = "s3.part.size"

	// ConfigConcurrency is the multipart upload concurrency. Default: 5.
	ConfigConcurrency = "s3.concurrency"
)

// FileSystem implements dfskit.FileSystem over an S3 bucket.
type FileSystem struct {
	base     dfskit.Path
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
	closed   bool
	mu       sync.RWMutex
}

// New creates a handle onto the bucket named by the base path's authority.
func New(base dfskit.Path, cfg dfskit.Config) (dfskit.FileSystem, error) {
	bucket := base.Authority()
	if bucket == "" {
		return nil, fmt.Errorf("s3: no bucket in path authority")
	}

	var optFns []func(*config.LoadOptions) error
	if region, ok := cfg.Get(ConfigRegion); ok {
		optFns = append(optFns, config.WithRegion(region))
	}
	accessKey := cfg.GetDefault(ConfigAccessKeyID, "")
	secretKey := cfg.GetDefault(ConfigSecretAccessKey, "")
	if accessKey != "" && secretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			cfg.GetDefault(ConfigSessionToken, ""),
		)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: loading AWS config: %w", err)
	}

	var s3OptFns []func(*s3.Options)
	if endpoint, ok := cfg.Get(ConfigEndpoint); ok {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.Bool(ConfigPathStyle, false) {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3OptFns...)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = int64(cfg.Int(ConfigPartSize, 5*1024*1024))
		u.Concurrency = cfg.Int(ConfigConcurrency, 5)
	})

	return &FileSystem{
		base:     base,
		bucket:   bucket,
		client:   client,
		uploader: uploader,
	}, nil
}

// Open opens the named object for reading.
func (fs *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	result, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(key(name)),
	})
	if err != nil {
		return nil, translateError(err, name)
	}
	return result.Body, nil
}

// Create opens the named object for writing. The upload runs when the
// writer is closed; Close must be called and its error checked.
func (fs *FileSystem) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}
	return &s3Writer{fs: fs, ctx: ctx, key: key(name), buf: &bytes.Buffer{}}, nil
}

// Stat returns metadata for the named object. A name that is only a key
// prefix of other objects reports as a directory.
func (fs *FileSystem) Stat(ctx context.Context, name string) (*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	k := key(name)
	if k == "" {
		return &dfskit.FileStatus{Path: fs.base.WithName("/"), Size: -1, Dir: true}, nil
	}

	head, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(k),
	})
	if err == nil {
		status := &dfskit.FileStatus{Path: fs.base.WithName(name), Mode: 0644}
		if head.ContentLength != nil {
			status.Size = *head.ContentLength
		}
		if head.LastModified != nil {
			status.ModTime = *head.LastModified
		}
		return status, nil
	}
	if !isNotFound(err) {
		return nil, translateError(err, name)
	}

	// No object at the key; probe for an implicit directory.
	dir, err := fs.isPrefix(ctx, k)
	if err != nil {
		return nil, translateError(err, name)
	}
	if dir {
		return &dfskit.FileStatus{Path: fs.base.WithName(name), Size: -1, Dir: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
}

// ReadDir lists the immediate children of the named prefix, sorted by name.
func (fs *FileSystem) ReadDir(ctx context.Context, name string) ([]*dfskit.FileStatus, error) {
	if err := fs.check(ctx); err != nil {
		return nil, err
	}

	prefix := key(name)
	if prefix != "" {
		prefix += "/"
	}

	var statuses []*dfskit.FileStatus
	seen := false
	paginator := s3.NewListObjectsV2Paginator(fs.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(fs.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translateError(err, name)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			seen = true
			if *obj.Key == prefix {
				continue // directory marker object
			}
			status := &dfskit.FileStatus{
				Path: fs.base.WithName("/" + *obj.Key),
				Mode: 0644,
			}
			if obj.Size != nil {
				status.Size = *obj.Size
			}
			if obj.LastModified != nil {
				status.ModTime = *obj.LastModified
			}
			statuses = append(statuses, status)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			seen = true
			statuses = append(statuses, &dfskit.FileStatus{
				Path: fs.base.WithName("/" + strings.TrimSuffix(*cp.Prefix, "/")),
				Size: -1,
				Dir:  true,
			})
		}
	}

	if !seen && prefix != "" {
		return nil, fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name() < statuses[j].Name() })
	return statuses, nil
}

// MkdirAll is a no-op; S3 directories are implicit from object keys.
func (fs *FileSystem) MkdirAll(ctx context.Context, name string, _ os.FileMode) error {
	return fs.check(ctx)
}

// Rename moves an object, or every object under a prefix, via server-side
// copy and delete. An existing destination fails with ErrAlreadyExists.
func (fs *FileSystem) Rename(ctx context.Context, oldname, newname string) error {
	if err := fs.check(ctx); err != nil {
		return err
	}

	dstKey := key(newname)
	if exists, err := fs.keyExists(ctx, dstKey); err != nil {
		return translateError(err, newname)
	} else if exists {
		return fmt.Errorf("%w: %s", dfskit.ErrAlreadyExists, newname)
	}

	srcKey := key(oldname)
	keys, err := fs.keysUnder(ctx, srcKey)
	if err != nil {
		return translateError(err, oldname)
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s", dfskit.ErrNotFound, oldname)
	}

	for _, k := range keys {
		target := dstKey + strings.TrimPrefix(k, srcKey)
		_, err := fs.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(fs.bucket),
			CopySource: aws.String(fs.bucket + "/" + k),
			Key:        aws.String(target),
		})
		if err != nil {
			return translateError(err, oldname)
		}
	}
	for _, k := range keys {
		_, err := fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			return translateError(err, oldname)
		}
	}
	return nil
}

// Delete removes the named object, or every object under the named prefix.
// Returns (false, nil) when nothing matched.
func (fs *FileSystem) Delete(ctx context.Context, name string) (bool, error) {
	if err := fs.check(ctx); err != nil {
		return false, err
	}

	keys, err := fs.keysUnder(ctx, key(name))
	if err != nil {
		return false, translateError(err, name)
	}
	if len(keys) == 0 {
		return false, nil
	}

	for _, k := range keys {
		_, err := fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			return false, translateError(err, name)
		}
	}
	return true, nil
}

// Close releases the handle.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
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

// keyExists reports whether an object exists at the exact key or any
// object exists under it as a prefix.
func (fs *FileSystem) keyExists(ctx context.Context, k string) (bool, error) {
	_, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(k),
	})
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, err
	}
	return fs.isPrefix(ctx, k)
}

// isPrefix reports whether any object key starts with k + "/".
func (fs *FileSystem) isPrefix(ctx context.Context, k string) (bool, error) {
	result, err := fs.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(fs.bucket),
		Prefix:  aws.String(k + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(result.Contents) > 0, nil
}

// keysUnder returns the key itself when an object exists there, plus every
// object key under it as a prefix.
func (fs *FileSystem) keysUnder(ctx context.Context, k string) ([]string, error) {
	var keys []string

	_, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(k),
	})
	switch {
	case err == nil:
		keys = append(keys, k)
	case !isNotFound(err):
		return nil, err
	}

	paginator := s3.NewListObjectsV2Paginator(fs.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(fs.bucket),
		Prefix: aws.String(k + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// key maps a slash-rooted name onto an S3 object key.
func key(name string) string {
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

func translateError(err error, name string) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", dfskit.ErrNotFound, name)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%w: bucket for %s", dfskit.ErrNotFound, name)
	}

	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s", dfskit.ErrPermissionDenied, name)
		}
	}
	return fmt.Errorf("s3: %s: %w", name, err)
}

// s3Writer buffers writes and uploads the object on Close.
type s3Writer struct {
	fs     *FileSystem
	ctx    context.Context
	key    string
	buf    *bytes.Buffer
	closed bool
	mu     sync.Mutex
}

func (w *s3Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, dfskit.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.fs.uploader.Upload(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.fs.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("s3: uploading %s: %w", w.key, err)
	}
	return nil
}

var _ dfskit.FileSystem = (*FileSystem)(nil)
