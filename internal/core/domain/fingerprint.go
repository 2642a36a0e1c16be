package domain

// Fingerprint is a stable identity for a file's bytes: either a modification
// stamp (cheap, per-file cache keys) or a content hash (used when one cache
// key spans multiple inputs, or when the fingerprint names an output file).
type Fingerprint string

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == ""
}

// String returns the fingerprint value.
func (f Fingerprint) String() string {
	return string(f)
}
