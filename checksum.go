package dfskit

import (
	"context"
	"crypto/md5"  //nolint:gosec // MD5 used for content verification, not security
	"crypto/sha1" //nolint:gosec // SHA1 used for content verification, not security
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"hash/crc32"
	"io"
)

// HashType represents a hash algorithm used for content verification.
type HashType string

const (
	// HashMD5 is the MD5 hash algorithm.
	HashMD5 HashType = "md5"

	// HashSHA1 is the SHA-1 hash algorithm.
	HashSHA1 HashType = "sha1"

	// HashSHA256 is the SHA-256 hash algorithm.
	HashSHA256 HashType = "sha256"

	// HashCRC32C is the CRC32C (Castagnoli) checksum.
	HashCRC32C HashType = "crc32c"
)

// String returns the string representation of the hash type.
func (h HashType) String() string {
	return string(h)
}

// NewHash creates a new hash.Hash for the given hash type.
// Returns nil if the hash type is not supported.
func NewHash(t HashType) hash.Hash {
	switch t {
	case HashMD5:
		return md5.New() //nolint:gosec // MD5 used for content verification
	case HashSHA1:
		return sha1.New() //nolint:gosec // SHA1 used for content verification
	case HashSHA256:
		return sha256.New()
	case HashCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli))
	default:
		return nil
	}
}

// Checksum computes the hex-encoded content hash of the raw bytes stored at
// a path. No codec is applied: a compressed file is hashed as stored, which
// matches what a verification against the remote side would compare.
func Checksum(ctx context.Context, path string, t HashType, opts ...Option) (string, error) {
	h := NewHash(t)
	if h == nil {
		return "", ErrNotSupported
	}

	var sum string
	err := withFS(path, applyOptions(opts), func(p Path, fs FileSystem) error {
		r, err := fs.Open(ctx, p.Name())
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		if _, err := io.Copy(h, r); err != nil {
			return err
		}
		sum = hex.EncodeToString(h.Sum(nil))
		return nil
	})
	return sum, err
}
