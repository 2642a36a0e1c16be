package app

import (
	"path/filepath"
	"sync"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/fab/internal/engine/pipeline"
)

// buildState holds everything owned by one build session: the module graph,
// the per-class caches, the stage runner and the current artifact names. In
// watch mode it lives for the whole watch loop so rebuilds stay incremental.
type buildState struct {
	cfg    *domain.Config
	graph  *domain.ModuleGraph
	caches *domain.CacheSet
	runner *pipeline.Runner

	mu        sync.Mutex
	artifacts map[domain.AssetClass]string
}

func newBuildState(cfg *domain.Config, tracer ports.Tracer, log ports.Logger) *buildState {
	return &buildState{
		cfg:       cfg,
		graph:     domain.NewModuleGraph(),
		caches:    domain.NewCacheSet(cfg.CacheEnabled),
		runner:    pipeline.NewRunner(cfg.Parallel, tracer, log),
		artifacts: make(map[domain.AssetClass]string),
	}
}

// setArtifact records the current output artifact for a class.
func (s *buildState) setArtifact(class domain.AssetClass, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[class] = path
}

// artifactRefs maps the logical artifact names referenced from HTML to the
// current hashed basenames.
func (s *buildState) artifactRefs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make(map[string]string, 2)
	if bundle := s.artifacts[domain.ClassScripts]; bundle != "" {
		ext := filepath.Ext(s.cfg.Entry)
		base := filepath.Base(s.cfg.Entry)
		logical := base[:len(base)-len(ext)] + ".js"
		refs[logical] = filepath.Base(bundle)
	}
	if styles := s.artifacts[domain.ClassStyles]; styles != "" {
		refs["styles.css"] = filepath.Base(styles)
	}
	return refs
}
