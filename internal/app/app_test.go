package app

import (
	"context"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fab/internal/adapters/esbuild"
	"go.trai.ch/fab/internal/adapters/fs"
	"go.trai.ch/fab/internal/adapters/markup"
	"go.trai.ch/fab/internal/adapters/styles"
	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(error)  {}

type nopSpan struct{}

func (nopSpan) End()                     {}
func (nopSpan) RecordError(error)        {}
func (nopSpan) SetAttribute(string, any) {}

type nopTracer struct{}

func (nopTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, nopSpan{}
}

// staticLoader returns a fixed configuration regardless of the working
// directory, so tests control the project layout via t.TempDir.
type staticLoader struct {
	cfg *domain.Config
}

func (l *staticLoader) Load(string) (*domain.Config, error) {
	return l.cfg, nil
}

// passOptimizer stands in for the image codec so tests stay free of native
// library initialization.
type passOptimizer struct{}

func (passOptimizer) Optimize(_ context.Context, data []byte, _ string) ([]byte, error) {
	return data, nil
}

type recordHooks struct {
	mu        sync.Mutex
	scripts   []string
	styles    []string
	completed []error
}

func (h *recordHooks) ScriptsBundled(_ context.Context, artifact string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scripts = append(h.scripts, artifact)
}

func (h *recordHooks) StylesCompiled(_ context.Context, artifact string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.styles = append(h.styles, artifact)
}

func (h *recordHooks) BuildCompleted(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = append(h.completed, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testProject(t *testing.T) *domain.Config {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "src", "main.js"),
		`import { greet } from "./util.js";
console.log(greet("fab"));
`)
	writeFile(t, filepath.Join(dir, "src", "util.js"),
		`export function greet(name) { return "hello " + name; }
`)
	writeFile(t, filepath.Join(dir, "styles", "main.css"),
		"body { margin: 0; }\n")
	writeFile(t, filepath.Join(dir, "assets", "logo.svg"),
		`<svg xmlns="http://www.w3.org/2000/svg"><rect width="1" height="1"/></svg>`)
	writeFile(t, filepath.Join(dir, "static", "robots.txt"),
		"User-agent: *\n")
	writeFile(t, filepath.Join(dir, "index.html"),
		`<html><head><link rel="stylesheet" href="styles.css"></head>`+
			`<body><script src="main.js"></script></body></html>`)

	cfg := &domain.Config{
		Root:           dir,
		OutDir:         filepath.Join(dir, "dist"),
		Entry:          filepath.Join(dir, "src", "main.js"),
		Strategy:       domain.StrategyClosure,
		TargetSyntax:   "es2017",
		SourceMap:      domain.SourceMapNone,
		StyleGlobs:     []string{"styles/*.css"},
		MarkupGlobs:    []string{"*.html"},
		AssetGlobs:     []string{"assets/*.svg"},
		StaticDir:      filepath.Join(dir, "static"),
		CacheEnabled:   true,
		Parallel:       true,
		DebounceWindow: 50 * time.Millisecond,
	}
	cfg.Seal()
	return cfg
}

func newTestApp(cfg *domain.Config) (*App, *recordHooks) {
	fp := fs.NewFingerprinter()
	hooks := &recordHooks{}
	a := New(
		&staticLoader{cfg: cfg},
		esbuild.NewTranspiler(),
		styles.NewCompiler(nopLogger{}),
		passOptimizer{},
		markup.NewMinifier(),
		fp,
		fs.NewWriter(fp),
		nopTracer{},
		nopLogger{},
	).WithHooks(hooks)
	return a, hooks
}

func TestApp_BuildEmitsEveryAssetClass(t *testing.T) {
	cfg := testProject(t)
	a, hooks := newTestApp(cfg)

	require.NoError(t, a.Build(context.Background(), BuildOptions{}))

	bundles, err := filepath.Glob(filepath.Join(cfg.OutDir, "main.*.js"))
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	styleBundles, err := filepath.Glob(filepath.Join(cfg.OutDir, "styles-*.css"))
	require.NoError(t, err)
	require.Len(t, styleBundles, 1)

	logos, err := filepath.Glob(filepath.Join(cfg.OutDir, "assets", "logo-*.svg"))
	require.NoError(t, err)
	require.Len(t, logos, 1)

	robots, err := os.ReadFile(filepath.Join(cfg.OutDir, "static", "robots.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(robots), "User-agent")

	page, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), filepath.Base(bundles[0]))
	assert.Contains(t, string(page), filepath.Base(styleBundles[0]))
	assert.NotContains(t, string(page), `"main.js"`)

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	require.Len(t, hooks.scripts, 1)
	require.Len(t, hooks.styles, 1)
	require.Len(t, hooks.completed, 1)
	assert.NoError(t, hooks.completed[0])
}

func TestApp_BuildBundleContainsAllModules(t *testing.T) {
	cfg := testProject(t)
	a, _ := newTestApp(cfg)

	require.NoError(t, a.Build(context.Background(), BuildOptions{}))

	bundles, err := filepath.Glob(filepath.Join(cfg.OutDir, "main.*.js"))
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	code, err := os.ReadFile(bundles[0])
	require.NoError(t, err)
	assert.Contains(t, string(code), "hello ")
	assert.Contains(t, string(code), "console.log")
}

func TestApp_BuildMissingEntry(t *testing.T) {
	cfg := testProject(t)
	cfg.Entry = filepath.Join(cfg.Root, "src", "absent.js")
	a, hooks := newTestApp(cfg)

	err := a.Build(context.Background(), BuildOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	require.Len(t, hooks.completed, 1)
	assert.Error(t, hooks.completed[0])
}

func TestApp_BuildMinifiedMarkup(t *testing.T) {
	cfg := testProject(t)
	cfg.Minify = true
	a, _ := newTestApp(cfg)

	require.NoError(t, a.Build(context.Background(), BuildOptions{}))

	page, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(page), "\n")
}

func TestApp_LoadConfigNoCache(t *testing.T) {
	cfg := testProject(t)
	a, _ := newTestApp(cfg)

	loaded, err := a.loadConfig(BuildOptions{NoCache: true})
	require.NoError(t, err)
	assert.False(t, loaded.CacheEnabled)
	assert.True(t, cfg.CacheEnabled, "the loader's configuration must stay untouched")
}

func TestApp_CleanRemovesOutputDirectory(t *testing.T) {
	cfg := testProject(t)
	a, _ := newTestApp(cfg)

	require.NoError(t, a.Build(context.Background(), BuildOptions{}))
	require.DirExists(t, cfg.OutDir)

	require.NoError(t, a.Clean(context.Background()))
	assert.NoDirExists(t, cfg.OutDir)
}

func TestApp_IgnoredPaths(t *testing.T) {
	cfg := testProject(t)
	a, _ := newTestApp(cfg)

	assert.True(t, a.ignored(cfg, filepath.Join(cfg.OutDir, "main.abc.js")))
	assert.True(t, a.ignored(cfg, filepath.Join(cfg.Root, "src", "main.js~")))
	assert.True(t, a.ignored(cfg, filepath.Join(cfg.Root, "src", ".main.js.swp")))
	assert.False(t, a.ignored(cfg, filepath.Join(cfg.Root, "src", "main.js")))
}

// countingTranspiler delegates to a real transpiler while counting
// invocations, so cache hits are observable per collaborator.
type countingTranspiler struct {
	inner ports.Transpiler
	calls atomic.Int64
}

func (c *countingTranspiler) Transform(ctx context.Context, path, source string, opts ports.TranspileOptions) (ports.TranspileResult, error) {
	c.calls.Add(1)
	return c.inner.Transform(ctx, path, source, opts)
}

type countingStyler struct {
	inner ports.StyleCompiler
	calls atomic.Int64
}

func (c *countingStyler) Compile(ctx context.Context, path, source string, opts ports.StyleOptions) (string, error) {
	c.calls.Add(1)
	return c.inner.Compile(ctx, path, source, opts)
}

type countingOptimizer struct {
	calls atomic.Int64
}

func (c *countingOptimizer) Optimize(_ context.Context, data []byte, _ string) ([]byte, error) {
	c.calls.Add(1)
	return data, nil
}

// outputSnapshot maps every file under dir (relative path) to its content.
func outputSnapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	snapshot := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path) //nolint:gosec // Test output file
		if err != nil {
			return err
		}
		snapshot[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return snapshot
}

func TestApp_SecondIdenticalPassIsFullCacheHit(t *testing.T) {
	cfg := testProject(t)
	fp := fs.NewFingerprinter()
	transpiler := &countingTranspiler{inner: esbuild.NewTranspiler()}
	styler := &countingStyler{inner: styles.NewCompiler(nopLogger{})}
	optimizer := &countingOptimizer{}
	a := New(
		&staticLoader{cfg: cfg},
		transpiler,
		styler,
		optimizer,
		markup.NewMinifier(),
		fp,
		fs.NewWriter(fp),
		nopTracer{},
		nopLogger{},
	)

	state := newBuildState(cfg, nopTracer{}, nopLogger{})
	require.NoError(t, a.runPass(context.Background(), state, fullInterest()))

	firstOutputs := outputSnapshot(t, cfg.OutDir)
	transpiles := transpiler.calls.Load()
	compiles := styler.calls.Load()
	optimizations := optimizer.calls.Load()
	require.Positive(t, transpiles)
	require.Positive(t, compiles)
	require.Positive(t, optimizations)

	// Nothing changed, so the second pass must not touch any collaborator
	// or rewrite any artifact.
	require.NoError(t, a.runPass(context.Background(), state, fullInterest()))

	assert.Equal(t, transpiles, transpiler.calls.Load())
	assert.Equal(t, compiles, styler.calls.Load())
	assert.Equal(t, optimizations, optimizer.calls.Load())
	assert.Equal(t, firstOutputs, outputSnapshot(t, cfg.OutDir))
}

func TestApp_RepeatedBuildsDoNotAccumulateArtifacts(t *testing.T) {
	cfg := testProject(t)
	a, _ := newTestApp(cfg)

	require.NoError(t, a.Build(context.Background(), BuildOptions{}))

	// Builds run with fresh caches, as separate invocations of the binary
	// would. An edited entry must replace the hashed bundle, not sit next
	// to the old one.
	writeFile(t, cfg.Entry, `console.log("rewritten entry");`+"\n")
	require.NoError(t, a.Build(context.Background(), BuildOptions{}))

	bundles, err := filepath.Glob(filepath.Join(cfg.OutDir, "main.*.js"))
	require.NoError(t, err)
	assert.Len(t, bundles, 1)

	styleBundles, err := filepath.Glob(filepath.Join(cfg.OutDir, "styles-*.css"))
	require.NoError(t, err)
	assert.Len(t, styleBundles, 1)
}
