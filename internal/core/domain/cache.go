package domain

import "sync"

// CacheEntry records the fingerprint that produced the currently-referenced
// output artifact, plus enough metadata to reuse or delete that output.
type CacheEntry struct {
	// Fingerprint identifies the input content behind the current artifact.
	Fingerprint Fingerprint
	// Artifact is the absolute path of the output written for that content.
	Artifact string
}

// ArtifactCache is one asset class's key-to-entry map. Keys are basenames for
// single-output classes and root-relative paths for per-file classes.
//
// A stale entry (fingerprint mismatch) is never served as a hit, and when the
// global cache switch is off every consultation is a miss.
type ArtifactCache struct {
	mu      sync.RWMutex
	enabled bool
	entries map[string]CacheEntry
}

// NewArtifactCache creates an empty cache. enabled is the global cache switch.
func NewArtifactCache(enabled bool) *ArtifactCache {
	return &ArtifactCache{
		enabled: enabled,
		entries: make(map[string]CacheEntry),
	}
}

// ShouldSkip reports whether the work behind key can be skipped because the
// fingerprint matches the entry that produced the current artifact. On a hit
// the recorded entry is returned for artifact reuse.
func (c *ArtifactCache) ShouldSkip(key string, fp Fingerprint) (CacheEntry, bool) {
	if !c.enabled {
		return CacheEntry{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.Fingerprint != fp {
		return CacheEntry{}, false
	}
	return entry, true
}

// Put records the entry for key, replacing any prior entry. It returns the
// replaced artifact path when it differs from the new one, so the caller can
// remove the stale output file.
func (c *ArtifactCache) Put(key string, entry CacheEntry) (stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[key]; ok && prev.Artifact != entry.Artifact {
		stale = prev.Artifact
	}
	c.entries[key] = entry
	return stale
}

// Lookup returns the entry at key regardless of fingerprint.
func (c *ArtifactCache) Lookup(key string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Clear drops every entry. Used when a change batch invalidates the whole
// class, e.g. markup after script or style output names changed.
func (c *ArtifactCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
}

// Len returns the number of entries.
func (c *ArtifactCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheSet groups the per-class caches mutated by one build pass at a time.
type CacheSet struct {
	Scripts *ArtifactCache
	Styles  *ArtifactCache
	Markup  *ArtifactCache
	Assets  *ArtifactCache
	Static  *ArtifactCache
}

// NewCacheSet creates the per-class caches sharing one global cache switch.
func NewCacheSet(enabled bool) *CacheSet {
	return &CacheSet{
		Scripts: NewArtifactCache(enabled),
		Styles:  NewArtifactCache(enabled),
		Markup:  NewArtifactCache(enabled),
		Assets:  NewArtifactCache(enabled),
		Static:  NewArtifactCache(enabled),
	}
}

// ByClass returns the cache owning the given asset class.
func (s *CacheSet) ByClass(class AssetClass) *ArtifactCache {
	switch class {
	case ClassScripts:
		return s.Scripts
	case ClassStyles:
		return s.Styles
	case ClassMarkup:
		return s.Markup
	case ClassAssets:
		return s.Assets
	case ClassStatic:
		return s.Static
	default:
		return nil
	}
}
