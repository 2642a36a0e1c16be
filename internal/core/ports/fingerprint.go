package ports

import "go.trai.ch/fab/internal/core/domain"

// Fingerprinter computes stable identities for file bytes. Every cache keys
// off one of these.
type Fingerprinter interface {
	// Stamp returns a cheap modification-time fingerprint for one file.
	// Content changes normally bump mtime, so a low false-negative risk is
	// acceptable for per-file cache keys.
	Stamp(path string) (domain.Fingerprint, error)

	// ContentHash hashes the concatenated contents of the given files in
	// order. Used when one cache key spans multiple inputs, so reordering
	// and partial edits are detected precisely.
	ContentHash(paths ...string) (domain.Fingerprint, error)

	// HashBytes hashes in-memory content, for naming content-hashed outputs.
	HashBytes(data []byte) domain.Fingerprint
}
