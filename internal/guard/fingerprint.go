package guard

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Supported hash algorithms
const (
	HashMD5    = "md5"
	HashSHA256 = "sha256"
)

// Hasher fingerprints file contents. The digest is a change detector, not a
// security primitive.
type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
}

// NewHasher creates a hasher for the given algorithm. An empty algorithm
// selects sha256.
func NewHasher(algorithm string) (*Hasher, error) {
	switch algorithm {
	case "", HashSHA256:
		return &Hasher{algorithm: HashSHA256, newHash: sha256.New}, nil
	case HashMD5:
		return &Hasher{algorithm: HashMD5, newHash: md5.New}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// Algorithm returns the algorithm name
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Fingerprint returns the hex digest of the file at path. Directories,
// missing paths and unreadable files all report false.
func (h *Hasher) Fingerprint(path string) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return "", false
	}

	sum := h.newHash()
	if _, err := io.Copy(sum, file); err != nil {
		return "", false
	}
	return hex.EncodeToString(sum.Sum(nil)), true
}
