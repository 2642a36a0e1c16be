// Package domain contains the core domain models for the asset pipeline:
// the module graph, asset classes, artifact caches and the build configuration.
package domain

import (
	"iter"
	"path/filepath"
)

// ExternalModulePrefix namespaces the synthetic graph keys of external
// package stubs so they can never collide with real files.
const ExternalModulePrefix = string(filepath.Separator) + "__external__" + string(filepath.Separator)

// ModuleRecord is the transformed representation of one source file reachable
// from the entry point, plus its resolved local dependencies.
type ModuleRecord struct {
	// Path is the absolute file path. It is the identity key in the graph.
	Path string

	// Code is the transformed source text produced by the transpiler.
	Code string

	// SourceMap is the transpiler's source map output. Opaque to the core;
	// it is carried through to the artifact writer.
	SourceMap []byte

	// Fingerprint identifies the source content that produced Code. A record
	// is reused on revisit iff the fingerprint is unchanged.
	Fingerprint Fingerprint

	// Dependencies lists the absolute paths this module imports, in the
	// order the import extractor found them.
	Dependencies []string

	// Imports maps each import specifier found in Code to the absolute path
	// it resolved to. The bundle generator uses it to rewrite specifiers to
	// registry identifiers.
	Imports map[string]string
}

// ModuleGraph maps absolute paths to module records. It is the sole source of
// truth for what is currently bundled, and is owned exclusively by one build
// pass at a time.
//
// Insertion order is preserved so that bundle emission is deterministic for a
// given traversal.
type ModuleGraph struct {
	records map[string]*ModuleRecord
	order   []string
}

// NewModuleGraph creates an empty module graph.
func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{
		records: make(map[string]*ModuleRecord),
	}
}

// Lookup returns the record at path, if present.
func (g *ModuleGraph) Lookup(path string) (*ModuleRecord, bool) {
	rec, ok := g.records[path]
	return rec, ok
}

// Add registers a record under its path. An existing record at the same path
// is replaced, not merged; its position in the emission order is kept.
func (g *ModuleGraph) Add(rec *ModuleRecord) {
	if _, exists := g.records[rec.Path]; !exists {
		g.order = append(g.order, rec.Path)
	}
	g.records[rec.Path] = rec
}

// Len returns the number of registered modules.
func (g *ModuleGraph) Len() int {
	return len(g.records)
}

// Modules returns an iterator over records in insertion order.
func (g *ModuleGraph) Modules() iter.Seq[*ModuleRecord] {
	return func(yield func(*ModuleRecord) bool) {
		for _, path := range g.order {
			if !yield(g.records[path]) {
				return
			}
		}
	}
}

// Records returns the records in insertion order as a slice.
func (g *ModuleGraph) Records() []*ModuleRecord {
	res := make([]*ModuleRecord, 0, len(g.order))
	for _, path := range g.order {
		res = append(res, g.records[path])
	}
	return res
}
