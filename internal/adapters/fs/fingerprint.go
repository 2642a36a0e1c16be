// Package fs implements file system concerns: fingerprinting source files
// and writing hashed output artifacts.
package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*Fingerprinter)(nil)

// Fingerprinter computes file identities. Per-file cache keys use a cheap
// mtime stamp; multi-input keys and output names use an xxhash content hash.
type Fingerprinter struct{}

// NewFingerprinter creates a Fingerprinter.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// Stamp returns a modification-time fingerprint for one file.
func (f *Fingerprinter) Stamp(path string) (domain.Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", zerr.With(errors.Join(domain.ErrPathStatFailed, err), "path", path)
	}
	stamp := "mtime:" + strconv.FormatInt(info.ModTime().UnixNano(), 10) +
		":" + strconv.FormatInt(info.Size(), 10)
	return domain.Fingerprint(stamp), nil
}

// ContentHash hashes the concatenated contents of the given files in order.
func (f *Fingerprinter) ContentHash(paths ...string) (domain.Fingerprint, error) {
	hasher := xxhash.New()
	for _, path := range paths {
		if err := hashFile(hasher, path); err != nil {
			return "", err
		}
		_, _ = hasher.Write([]byte{0})
	}
	return sum(hasher), nil
}

// HashBytes hashes in-memory content.
func (f *Fingerprinter) HashBytes(data []byte) domain.Fingerprint {
	hasher := xxhash.New()
	_, _ = hasher.Write(data)
	return sum(hasher)
}

func hashFile(hasher *xxhash.Digest, path string) error {
	file, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return zerr.With(errors.Join(domain.ErrFileOpenFailed, err), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	if _, err := io.Copy(hasher, file); err != nil {
		return zerr.With(errors.Join(domain.ErrFileHashFailed, err), "path", path)
	}
	return nil
}

func sum(hasher *xxhash.Digest) domain.Fingerprint {
	return domain.Fingerprint(fmt.Sprintf("%016x", hasher.Sum64()))
}
