// Package config provides the configuration loader for fab.
package config

import (
	"errors"
	"path/filepath"
	"time"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// defaultDebounce is the watch-mode settle window when fab.yaml does not
// configure one.
const defaultDebounce = 50 * time.Millisecond

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	fs  FileSystem
	log ports.Logger
}

// NewLoader creates a new Loader.
func NewLoader(fs FileSystem, log ports.Logger) *Loader {
	return &Loader{fs: fs, log: log}
}

// Load finds fab.yaml in cwd or one of its ancestors, merges it over the
// defaults and returns the sealed configuration.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	data, err := l.fs.ReadFile(configPath)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "path", configPath)
	}

	var file Fabfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "path", configPath)
	}

	return l.build(filepath.Dir(configPath), &file)
}

// findConfiguration walks from cwd toward the filesystem root looking for
// fab.yaml, so the tool works from any project subdirectory.
func (l *Loader) findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.FabFileName)
		if _, err := l.fs.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "no fab.yaml found walking up from working directory"), "cwd", cwd)
}

// build validates the DTO, applies defaults and resolves every path against
// the project root.
func (l *Loader) build(configDir string, file *Fabfile) (*domain.Config, error) {
	if file.Version != "" && file.Version != "1" {
		l.log.Warn("unknown fab.yaml version " + file.Version + ", proceeding as version 1")
	}

	root := configDir
	if file.Root != "" {
		root = resolvePath(configDir, file.Root)
	}

	if file.Entry == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, "entry is required"), "field", "entry")
	}

	strategy, err := parseStrategy(file.Strategy)
	if err != nil {
		return nil, err
	}
	sourceMap, err := parseSourceMap(file.SourceMap)
	if err != nil {
		return nil, err
	}

	debounce := defaultDebounce
	if file.Debounce != "" {
		debounce, err = time.ParseDuration(file.Debounce)
		if err != nil || debounce <= 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, "debounce must be a positive duration"), "field", "debounce")
		}
	}

	outDir := file.Out
	if outDir == "" {
		outDir = domain.DefaultOutDirName
	}

	markupGlobs := file.Markup
	if len(markupGlobs) == 0 {
		markupGlobs = []string{"*.html"}
	}

	cfg := &domain.Config{
		Root:           root,
		OutDir:         resolvePath(root, outDir),
		Entry:          resolvePath(root, file.Entry),
		Strategy:       strategy,
		TargetSyntax:   file.Target,
		SourceMap:      sourceMap,
		Minify:         boolOr(file.Minify, false),
		Externals:      file.Externals,
		StyleGlobs:     file.Styles,
		MarkupGlobs:    markupGlobs,
		AssetGlobs:     file.Assets,
		CacheEnabled:   boolOr(file.Cache, true),
		Parallel:       boolOr(file.Parallel, true),
		DebounceWindow: debounce,
	}
	if file.Static != "" {
		cfg.StaticDir = resolvePath(root, file.Static)
	}
	if file.Public != "" {
		cfg.PublicDir = resolvePath(root, file.Public)
	}

	cfg.Seal()
	return cfg, nil
}

func parseStrategy(s string) (domain.BundleStrategy, error) {
	switch domain.BundleStrategy(s) {
	case "":
		return domain.StrategyClosure, nil
	case domain.StrategyClosure:
		return domain.StrategyClosure, nil
	case domain.StrategyESM:
		return domain.StrategyESM, nil
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrUnknownStrategy, "unrecognized bundle strategy"), "strategy", s)
	}
}

func parseSourceMap(s string) (domain.SourceMapMode, error) {
	switch domain.SourceMapMode(s) {
	case "":
		return domain.SourceMapNone, nil
	case domain.SourceMapNone, domain.SourceMapExternal, domain.SourceMapInline:
		return domain.SourceMapMode(s), nil
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, "unrecognized sourcemap mode"), "field", "sourcemap")
	}
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
