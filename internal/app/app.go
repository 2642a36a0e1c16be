// Package app implements the application layer for fab.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/fab/internal/adapters/fs"
	"go.trai.ch/fab/internal/adapters/markup"
	"go.trai.ch/fab/internal/adapters/watcher"
	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/fab/internal/engine/bundle"
	"go.trai.ch/fab/internal/engine/coalescer"
	"go.trai.ch/fab/internal/engine/graph"
	"go.trai.ch/fab/internal/engine/pipeline"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// assetConcurrency bounds in-flight asset files within one stage, keeping
// file handle counts bounded.
const assetConcurrency = 8

// nonHashedExtensions keep their original basename in the output; their URLs
// are referenced from CSS and OS integrations that cannot follow a hash.
var nonHashedExtensions = map[string]bool{
	".woff":  true,
	".woff2": true,
	".ttf":   true,
	".otf":   true,
	".eot":   true,
	".ico":   true,
}

// App drives full and incremental builds over the asset pipeline.
type App struct {
	loader    ports.ConfigLoader
	builder   *graph.Builder
	styler    ports.StyleCompiler
	optimizer ports.AssetOptimizer
	minifier  ports.MarkupMinifier
	fp        ports.Fingerprinter
	writer    *fs.Writer
	tracer    ports.Tracer
	hooks     ports.Hooks
	log       ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	transpiler ports.Transpiler,
	styler ports.StyleCompiler,
	optimizer ports.AssetOptimizer,
	minifier ports.MarkupMinifier,
	fp ports.Fingerprinter,
	writer *fs.Writer,
	tracer ports.Tracer,
	log ports.Logger,
) *App {
	return &App{
		loader:    loader,
		builder:   graph.NewBuilder(transpiler, fp, log),
		styler:    styler,
		optimizer: optimizer,
		minifier:  minifier,
		fp:        fp,
		writer:    writer,
		tracer:    tracer,
		hooks:     ports.NoopHooks{},
		log:       log,
	}
}

// WithHooks replaces the lifecycle hooks. Primarily a test seam.
func (a *App) WithHooks(hooks ports.Hooks) *App {
	a.hooks = hooks
	return a
}

// BuildOptions configures a single build invocation.
type BuildOptions struct {
	// NoCache treats every cache consultation as a miss.
	NoCache bool
}

// Build runs one full build pass over every asset class.
func (a *App) Build(ctx context.Context, opts BuildOptions) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}

	state := newBuildState(cfg, a.tracer, a.log)
	if err := a.runPass(ctx, state, fullInterest()); err != nil {
		return errors.Join(domain.ErrBuildExecutionFailed, err)
	}
	return nil
}

// Watch runs a full build, then keeps the output tree current until the
// context ends. A failed rebuild logs and leaves the previous artifacts in
// place; it never stops the watcher.
func (a *App) Watch(ctx context.Context, opts BuildOptions) error {
	cfg, err := a.loadConfig(opts)
	if err != nil {
		return err
	}

	state := newBuildState(cfg, a.tracer, a.log)
	if err := a.runPass(ctx, state, fullInterest()); err != nil {
		if errors.Is(err, domain.ErrAborted) || errors.Is(err, context.Canceled) {
			return nil
		}
		// The watch loop recovers once the offending file is fixed.
		a.log.Error(err)
	}

	w, err := watcher.NewWatcher(a.log, filepath.Base(cfg.OutDir))
	if err != nil {
		return zerr.Wrap(err, "failed to create file watcher")
	}

	coal := coalescer.New(cfg, cfg.DebounceWindow, func(ctx context.Context, _ []string, interest domain.InterestSet) error {
		return a.runPass(ctx, state, interest)
	}, a.log)
	coal.Start(ctx)

	if err := w.Start(ctx, cfg.Root); err != nil {
		return zerr.Wrap(err, "failed to start file watcher")
	}
	a.log.Info("watching " + cfg.Root)

	for event := range w.Events() {
		if a.ignored(cfg, event.Path) {
			continue
		}
		coal.Notify(event.Path)
	}

	// The event stream closed: the context ended or the watcher died. Stop
	// watching, let in-flight work settle, then release the handles.
	_ = w.Stop()
	<-coal.Settle()
	return nil
}

// Clean removes the output directory.
func (a *App) Clean(_ context.Context) error {
	cfg, err := a.loadConfig(BuildOptions{})
	if err != nil {
		return err
	}

	a.log.Info("removing " + cfg.OutDir)
	return a.writer.Clean(cfg)
}

// loadConfig loads fab.yaml relative to the working directory.
func (a *App) loadConfig(opts BuildOptions) (*domain.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}

	cfg, err := a.loader.Load(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	if opts.NoCache {
		disabled := *cfg
		disabled.CacheEnabled = false
		cfg = &disabled
	}
	return cfg, nil
}

// ignored filters watch events that must not trigger rebuilds: anything in
// the output tree and editor temp files.
func (a *App) ignored(cfg *domain.Config, path string) bool {
	if rel, err := filepath.Rel(cfg.OutDir, path); err == nil &&
		rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	base := filepath.Base(path)
	return strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}

func fullInterest() domain.InterestSet {
	set := make(domain.InterestSet, len(domain.AllClasses))
	for _, class := range domain.AllClasses {
		set.Add(class)
	}
	return set
}

// runPass executes the pipeline stages implicated by interest. Scripts,
// styles, assets and static copy run under the runner's configured mode; the
// markup stage runs after them because it embeds the hashed names the other
// stages produce.
func (a *App) runPass(ctx context.Context, state *buildState, interest domain.InterestSet) (err error) {
	ctx, span := a.tracer.Start(ctx, "build")
	defer span.End()
	defer func() { a.hooks.BuildCompleted(ctx, err) }()

	// Script and style artifact names are content-hashed, so any meaningful
	// edit renames them and invalidates every page that embedded the old
	// names. Whether that happened is only known once the hashed stages ran,
	// so the reference snapshot is compared afterwards.
	prevRefs := state.artifactRefs()

	var stages []pipeline.Stage
	if interest.Has(domain.ClassScripts) {
		stages = append(stages, pipeline.Stage{Class: domain.ClassScripts, Run: func(ctx context.Context) error {
			return a.runScripts(ctx, state)
		}})
	}
	if interest.Has(domain.ClassStyles) {
		stages = append(stages, pipeline.Stage{Class: domain.ClassStyles, Run: func(ctx context.Context) error {
			return a.runStyles(ctx, state)
		}})
	}
	if interest.Has(domain.ClassAssets) {
		stages = append(stages, pipeline.Stage{Class: domain.ClassAssets, Run: func(ctx context.Context) error {
			return a.runAssets(ctx, state)
		}})
	}
	if interest.Has(domain.ClassStatic) {
		stages = append(stages, pipeline.Stage{Class: domain.ClassStatic, Run: func(ctx context.Context) error {
			return a.runStatic(ctx, state)
		}})
	}

	if err = state.runner.Run(ctx, stages); err != nil {
		span.RecordError(err)
		return err
	}

	runMarkup := interest.Has(domain.ClassMarkup)
	if !maps.Equal(state.artifactRefs(), prevRefs) {
		state.caches.Markup.Clear()
		runMarkup = true
	}
	if runMarkup {
		markupStage := []pipeline.Stage{{Class: domain.ClassMarkup, Run: func(ctx context.Context) error {
			return a.runMarkup(ctx, state)
		}}}
		if err = state.runner.Run(ctx, markupStage); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

// runScripts builds the module graph, generates the bundle and emits it
// unless the bundle content is unchanged.
func (a *App) runScripts(ctx context.Context, state *buildState) error {
	records, err := a.builder.Build(ctx, state.cfg, state.graph)
	if err != nil {
		return err
	}

	b, err := bundle.Generate(state.cfg.Strategy, records, state.cfg.Entry)
	if err != nil {
		return err
	}

	key := filepath.Base(state.cfg.Entry)
	fp := a.fp.HashBytes([]byte(b.Code))
	if entry, ok := state.caches.Scripts.ShouldSkip(key, fp); ok {
		state.setArtifact(domain.ClassScripts, entry.Artifact)
		a.log.Debug("script bundle unchanged")
		return nil
	}

	artifact, err := a.writer.WriteScriptBundle(state.cfg, b.Code, b.SourceMap)
	if err != nil {
		return err
	}
	if len(b.ImportMap) > 0 {
		if err := a.writeImportMap(artifact, b.ImportMap); err != nil {
			return err
		}
	}

	stale := state.caches.Scripts.Put(key, domain.CacheEntry{Fingerprint: fp, Artifact: artifact})
	if stale != "" && stale != artifact {
		if err := a.writer.RemoveArtifact(stale); err != nil {
			return err
		}
	}

	state.setArtifact(domain.ClassScripts, artifact)
	a.hooks.ScriptsBundled(ctx, artifact)
	a.log.Info("bundled " + strconv.Itoa(len(records)) + " modules into " + filepath.Base(artifact))
	return nil
}

// writeImportMap emits the ESM strategy's identifier-to-binding sidecar.
func (a *App) writeImportMap(artifact string, importMap map[string]string) error {
	data, err := json.MarshalIndent(importMap, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to encode import map")
	}
	return a.writer.WriteFile(artifact+".importmap.json", data)
}

// runStyles compiles the configured style sources into one combined bundle.
// The cache key spans every input, so the fingerprint is a content hash.
func (a *App) runStyles(ctx context.Context, state *buildState) error {
	files, err := a.glob(state.cfg, state.cfg.StyleGlobs)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	fp, err := a.fp.ContentHash(files...)
	if err != nil {
		return err
	}
	if entry, ok := state.caches.Styles.ShouldSkip("styles", fp); ok {
		state.setArtifact(domain.ClassStyles, entry.Artifact)
		a.log.Debug("style bundle unchanged")
		return nil
	}

	var combined strings.Builder
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return errors.Join(domain.ErrAborted, err)
		}

		data, err := os.ReadFile(file) //nolint:gosec // Project source file
		if err != nil {
			return zerr.With(errors.Join(domain.ErrFileOpenFailed, err), "path", file)
		}

		css, err := a.styler.Compile(ctx, file, string(data), ports.StyleOptions{
			Dialect:    strings.ToLower(filepath.Ext(file)),
			Compressed: state.cfg.Minify,
		})
		if err != nil {
			return zerr.With(errors.Join(domain.ErrTransformFailed, err), "path", file)
		}
		combined.WriteString(css)
		if !strings.HasSuffix(css, "\n") {
			combined.WriteString("\n")
		}
	}

	artifact, err := a.writer.WriteStyleBundle(state.cfg, combined.String())
	if err != nil {
		return err
	}

	stale := state.caches.Styles.Put("styles", domain.CacheEntry{Fingerprint: fp, Artifact: artifact})
	if stale != "" && stale != artifact {
		if err := a.writer.RemoveArtifact(stale); err != nil {
			return err
		}
	}

	state.setArtifact(domain.ClassStyles, artifact)
	a.hooks.StylesCompiled(ctx, artifact)
	a.log.Info("compiled " + strconv.Itoa(len(files)) + " style source(s) into " + filepath.Base(artifact))
	return nil
}

// runAssets optimizes and emits the configured asset files, a bounded number
// in flight at a time.
func (a *App) runAssets(ctx context.Context, state *buildState) error {
	files, err := a.glob(state.cfg, state.cfg.AssetGlobs)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(assetConcurrency)
	for _, file := range files {
		g.Go(func() error {
			return a.processAsset(ctx, state, file)
		})
	}
	return g.Wait()
}

func (a *App) processAsset(ctx context.Context, state *buildState, file string) error {
	rel, err := filepath.Rel(state.cfg.Root, file)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrPathStatFailed, err), "path", file)
	}

	fp, err := a.fp.Stamp(file)
	if err != nil {
		return err
	}
	if _, ok := state.caches.Assets.ShouldSkip(rel, fp); ok {
		return nil
	}

	data, err := os.ReadFile(file) //nolint:gosec // Project source file
	if err != nil {
		return zerr.With(errors.Join(domain.ErrFileOpenFailed, err), "path", file)
	}

	ext := strings.ToLower(filepath.Ext(file))
	optimized, err := a.optimizer.Optimize(ctx, data, ext)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errors.Join(domain.ErrAborted, err)
		}
		a.log.Warn("asset optimization degraded for " + rel + ", copying original")
		optimized = data
	}

	var artifact string
	if nonHashedExtensions[ext] {
		artifact, err = a.writer.WriteRawAsset(state.cfg, rel, optimized)
	} else {
		artifact, err = a.writer.WriteHashedAsset(state.cfg, rel, optimized)
	}
	if err != nil {
		return err
	}

	stale := state.caches.Assets.Put(rel, domain.CacheEntry{Fingerprint: fp, Artifact: artifact})
	if stale != "" && stale != artifact {
		return a.writer.RemoveArtifact(stale)
	}
	return nil
}

// runStatic copies the static and public passthrough trees verbatim. The
// static tree keeps its directory name under the output; the public tree is
// flattened into the output root.
func (a *App) runStatic(ctx context.Context, state *buildState) error {
	if dir := state.cfg.StaticDir; dir != "" {
		dst := filepath.Join(state.cfg.OutDir, filepath.Base(dir))
		if err := a.copyTree(ctx, state, dir, dst); err != nil {
			return err
		}
	}
	if dir := state.cfg.PublicDir; dir != "" {
		if err := a.copyTree(ctx, state, dir, state.cfg.OutDir); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) copyTree(ctx context.Context, state *buildState, src, dstRoot string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zerr.With(errors.Join(domain.ErrPathStatFailed, err), "path", src)
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(domain.ErrAborted, ctxErr)
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		key := filepath.Join(filepath.Base(src), rel)
		fp, err := a.fp.Stamp(path)
		if err != nil {
			return err
		}
		if _, ok := state.caches.Static.ShouldSkip(key, fp); ok {
			return nil
		}

		dst := filepath.Join(dstRoot, rel)
		if err := a.writer.CopyFile(path, dst); err != nil {
			return err
		}
		state.caches.Static.Put(key, domain.CacheEntry{Fingerprint: fp, Artifact: dst})
		return nil
	})
}

// runMarkup rewrites artifact references in each page and emits it, minified
// when configured. It runs after the hashed artifact names are known.
func (a *App) runMarkup(ctx context.Context, state *buildState) error {
	files, err := a.glob(state.cfg, state.cfg.MarkupGlobs)
	if err != nil {
		return err
	}
	refs := state.artifactRefs()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return errors.Join(domain.ErrAborted, err)
		}

		rel, err := filepath.Rel(state.cfg.Root, file)
		if err != nil {
			return zerr.With(errors.Join(domain.ErrPathStatFailed, err), "path", file)
		}

		fp, err := a.fp.Stamp(file)
		if err != nil {
			return err
		}
		if _, ok := state.caches.Markup.ShouldSkip(rel, fp); ok {
			continue
		}

		data, err := os.ReadFile(file) //nolint:gosec // Project source file
		if err != nil {
			return zerr.With(errors.Join(domain.ErrFileOpenFailed, err), "path", file)
		}

		text := markup.Rewrite(string(data), refs)
		if state.cfg.Minify {
			minified, err := a.minifier.Minify(text)
			if err != nil {
				a.log.Warn("markup minify degraded for " + rel + ", emitting unminified page")
			} else {
				text = minified
			}
		}

		artifact, err := a.writer.WriteRawAsset(state.cfg, rel, []byte(text))
		if err != nil {
			return err
		}
		state.caches.Markup.Put(rel, domain.CacheEntry{Fingerprint: fp, Artifact: artifact})
	}
	return nil
}

// glob expands root-relative patterns, deduplicates and sorts the matches.
func (a *App) glob(cfg *domain.Config, patterns []string) ([]string, error) {
	set := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(cfg.Root, pattern))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "invalid glob pattern"), "pattern", pattern)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() {
				set[match] = struct{}{}
			}
		}
	}

	files := make([]string, 0, len(set))
	for file := range set {
		files = append(files, file)
	}
	slices.Sort(files)
	return files, nil
}
