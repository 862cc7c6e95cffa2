package fs

import (
	"crypto/sha1" //nolint:gosec // Readable digests only, not used for security
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Hasher)(nil)

// Hasher fingerprints source files by size and content.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Fingerprint returns the size and the XXHash of the file's content.
// Modification times are ignored so snapshots survive fresh checkouts.
func (h *Hasher) Fingerprint(path string) (domain.InputSnapshot, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return domain.InputSnapshot{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return domain.InputSnapshot{}, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return domain.InputSnapshot{Size: n, Hash: fmt.Sprintf("%016x", hasher.Sum64())}, nil
}

// FingerprintBytes returns the snapshot of in-memory content. It matches Fingerprint of a file with the same bytes.
func FingerprintBytes(data []byte) domain.InputSnapshot {
	return domain.InputSnapshot{Size: int64(len(data)), Hash: fmt.Sprintf("%016x", xxhash.Sum64(data))}
}

// ReadableDigest returns the base64 encoded SHA-1 of a file, as printed by hash-sum reports.
func ReadableDigest(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := sha1.New() //nolint:gosec // See import
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}
