package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/zerr"
)

// Builder constructs the module graph reachable from an entry file. It is
// cache-aware: a module whose content fingerprint is unchanged since the last
// traversal is reused without re-reading, re-transforming or re-extracting.
type Builder struct {
	transpiler ports.Transpiler
	fp         ports.Fingerprinter
	extractor  *Extractor
	log        ports.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(transpiler ports.Transpiler, fp ports.Fingerprinter, log ports.Logger) *Builder {
	return &Builder{
		transpiler: transpiler,
		fp:         fp,
		extractor:  NewExtractor(),
		log:        log,
	}
}

// Build traverses every local module reachable from cfg.Entry and registers
// it in g exactly once, returning the records in traversal order.
//
// Traversal is depth-first via an explicit stack, which makes the emission
// order (and therefore the bundle) deterministic for a given source tree.
// Cycles are legal: the visited set guarantees termination, and a cyclic
// module's dependency list is still fully populated because extraction is
// static-text-based. Any resolution or transform failure of a reachable
// module aborts the whole build.
func (b *Builder) Build(ctx context.Context, cfg *domain.Config, g *domain.ModuleGraph) ([]*domain.ModuleRecord, error) {
	if _, err := os.Stat(cfg.Entry); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrEntryNotFound, "entry module is missing"), "entry", cfg.Entry)
	}

	stack := []string{cfg.Entry}
	visited := make(map[string]bool)
	var order []*domain.ModuleRecord

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(domain.ErrAborted, err)
		}

		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[path] {
			continue
		}
		visited[path] = true

		rec, err := b.fetch(ctx, cfg, g, path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to register module"), "module", path)
		}
		order = append(order, rec)

		// Push in reverse so the first import is visited first.
		for i := len(rec.Dependencies) - 1; i >= 0; i-- {
			if dep := rec.Dependencies[i]; !visited[dep] {
				stack = append(stack, dep)
			}
		}
	}

	return order, nil
}

// fetch returns the module record for path, reusing the graph's existing
// record when the content fingerprint is unchanged. External packages are
// stubbed without touching the file.
func (b *Builder) fetch(ctx context.Context, cfg *domain.Config, g *domain.ModuleGraph, path string) (*domain.ModuleRecord, error) {
	if cfg.IsExternal(path) {
		rec := externalStub(path)
		g.Add(rec)
		return rec, nil
	}

	fp, err := b.fp.Stamp(path)
	if err != nil {
		return nil, err
	}

	if existing, ok := g.Lookup(path); ok && existing.Fingerprint == fp {
		return existing, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // Path was resolved inside the project tree
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrFileOpenFailed, err), "path", path)
	}

	result, err := b.transpiler.Transform(ctx, path, string(data), ports.TranspileOptions{
		Loader:       strings.ToLower(filepath.Ext(path)),
		TargetSyntax: cfg.TargetSyntax,
		SourceMap:    cfg.SourceMap != domain.SourceMapNone,
		Minify:       cfg.Minify,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Join(domain.ErrAborted, ctx.Err())
		}
		return nil, errors.Join(domain.ErrTransformFailed, err)
	}

	baseDir := filepath.Dir(path)
	specs := b.extractor.Extract(fp, result.Code)
	deps := make([]string, 0, len(specs))
	imports := make(map[string]string, len(specs))
	for _, spec := range specs {
		resolved, err := b.resolveDep(cfg, baseDir, spec)
		if err != nil {
			return nil, err
		}
		deps = append(deps, resolved)
		imports[spec] = resolved
	}

	rec := &domain.ModuleRecord{
		Path:         path,
		Code:         result.Code,
		SourceMap:    result.Map,
		Fingerprint:  fp,
		Dependencies: deps,
		Imports:      imports,
	}
	g.Add(rec)
	return rec, nil
}

// resolveDep resolves one specifier. A specifier naming a configured external
// package resolves to a synthetic path so the stub lands in the graph under a
// stable key.
func (b *Builder) resolveDep(cfg *domain.Config, baseDir, spec string) (string, error) {
	if cfg.IsExternal(spec) {
		return externalPath(spec), nil
	}
	return Resolve(baseDir, spec)
}

func externalPath(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return domain.ExternalModulePrefix + base
}

// externalStub synthesizes a module that re-exports the external package from
// the global scope. The file behind the name is never read or transformed.
func externalStub(path string) *domain.ModuleRecord {
	name := strings.TrimPrefix(path, domain.ExternalModulePrefix)
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return &domain.ModuleRecord{
		Path:        path,
		Code:        fmt.Sprintf("exports.default = globalThis[%q]; exports.__esModule = true;", name),
		Fingerprint: domain.Fingerprint("external:" + name),
	}
}
