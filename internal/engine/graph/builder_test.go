package graph_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/fab/internal/engine/graph"
)

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(error)  {}

// identityTranspiler passes source through unchanged and counts invocations,
// so cache reuse is observable.
type identityTranspiler struct {
	calls atomic.Int64
}

func (tr *identityTranspiler) Transform(_ context.Context, _, source string, _ ports.TranspileOptions) (ports.TranspileResult, error) {
	tr.calls.Add(1)
	return ports.TranspileResult{Code: source}, nil
}

// statFingerprinter keys records off mtime and size, like the production
// fingerprinter, without pulling the adapter into the engine tests.
type statFingerprinter struct{}

func (statFingerprinter) Stamp(path string) (domain.Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", domain.ErrPathStatFailed
	}
	return domain.Fingerprint(info.ModTime().String() + ":" + strconv.FormatInt(info.Size(), 10)), nil
}

func (statFingerprinter) ContentHash(...string) (domain.Fingerprint, error) {
	return "", nil
}

func (statFingerprinter) HashBytes([]byte) domain.Fingerprint {
	return ""
}

func testConfig(dir string) *domain.Config {
	cfg := &domain.Config{
		Root:  dir,
		Entry: filepath.Join(dir, "main.js"),
	}
	cfg.Seal()
	return cfg
}

func TestBuilder_TraversalOrderIsDepthFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.js"), `import "./a"; import "./b";`)
	writeFile(t, filepath.Join(dir, "a.js"), `import "./b";`)
	writeFile(t, filepath.Join(dir, "b.js"), `export const b = 1;`)

	b := graph.NewBuilder(&identityTranspiler{}, statFingerprinter{}, nopLogger{})
	records, err := b.Build(context.Background(), testConfig(dir), domain.NewModuleGraph())
	require.NoError(t, err)

	paths := make([]string, 0, len(records))
	for _, rec := range records {
		paths = append(paths, filepath.Base(rec.Path))
	}
	assert.Equal(t, []string{"main.js", "a.js", "b.js"}, paths)
}

func TestBuilder_CycleTerminates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.js"), `import "./a";`)
	writeFile(t, filepath.Join(dir, "a.js"), `import "./b";`)
	writeFile(t, filepath.Join(dir, "b.js"), `import "./c";`)
	writeFile(t, filepath.Join(dir, "c.js"), `import "./a";`)

	b := graph.NewBuilder(&identityTranspiler{}, statFingerprinter{}, nopLogger{})
	records, err := b.Build(context.Background(), testConfig(dir), domain.NewModuleGraph())
	require.NoError(t, err)
	require.Len(t, records, 4)

	// The cyclic module's dependency list is still fully populated.
	byName := make(map[string]*domain.ModuleRecord, len(records))
	for _, rec := range records {
		byName[filepath.Base(rec.Path)] = rec
	}
	require.Contains(t, byName, "c.js")
	assert.Equal(t, []string{filepath.Join(dir, "a.js")}, byName["c.js"].Dependencies)
}

func TestBuilder_EntryNotFound(t *testing.T) {
	dir := t.TempDir()

	b := graph.NewBuilder(&identityTranspiler{}, statFingerprinter{}, nopLogger{})
	_, err := b.Build(context.Background(), testConfig(dir), domain.NewModuleGraph())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestBuilder_UnresolvableImportFailsBuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.js"), `import "./missing";`)

	b := graph.NewBuilder(&identityTranspiler{}, statFingerprinter{}, nopLogger{})
	_, err := b.Build(context.Background(), testConfig(dir), domain.NewModuleGraph())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModuleNotFound)
}

func TestBuilder_ReusesUnchangedModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.js"), `import "./a";`)
	writeFile(t, filepath.Join(dir, "a.js"), `export const a = 1;`)

	transpiler := &identityTranspiler{}
	b := graph.NewBuilder(transpiler, statFingerprinter{}, nopLogger{})
	g := domain.NewModuleGraph()
	cfg := testConfig(dir)

	_, err := b.Build(context.Background(), cfg, g)
	require.NoError(t, err)
	require.EqualValues(t, 2, transpiler.calls.Load())

	// Nothing changed, so the second traversal transforms nothing.
	_, err = b.Build(context.Background(), cfg, g)
	require.NoError(t, err)
	assert.EqualValues(t, 2, transpiler.calls.Load())

	// Touching one file re-transforms only that file.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.js"), future, future))

	_, err = b.Build(context.Background(), cfg, g)
	require.NoError(t, err)
	assert.EqualValues(t, 3, transpiler.calls.Load())
}

func TestBuilder_ExternalPackageIsStubbed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.js"), `import "./react.js";`)

	cfg := testConfig(dir)
	cfg.Externals = []string{"react"}

	b := graph.NewBuilder(&identityTranspiler{}, statFingerprinter{}, nopLogger{})
	records, err := b.Build(context.Background(), cfg, domain.NewModuleGraph())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Contains(t, records[1].Code, `globalThis["react"]`)
}

func TestBuilder_CancelledContextAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.js"), `export const x = 1;`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := graph.NewBuilder(&identityTranspiler{}, statFingerprinter{}, nopLogger{})
	_, err := b.Build(ctx, testConfig(dir), domain.NewModuleGraph())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAborted)
}
