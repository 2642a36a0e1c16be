package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// BundleStrategy selects how the module graph is emitted.
type BundleStrategy string

const (
	// StrategyClosure emits a self-invoking closure with a private module
	// registry and a memoizing require. This is the reference semantics.
	StrategyClosure BundleStrategy = "closure"
	// StrategyESM emits one top-level binding per module plus an import map
	// sidecar. Best effort: synchronous circular imports may observe a
	// partially-initialized binding.
	StrategyESM BundleStrategy = "esm"
)

// SourceMapMode controls how source maps are emitted alongside artifacts.
type SourceMapMode string

const (
	// SourceMapNone suppresses source map output.
	SourceMapNone SourceMapMode = "none"
	// SourceMapExternal writes a .map sidecar referenced by a trailing
	// sourceMappingURL comment.
	SourceMapExternal SourceMapMode = "external"
	// SourceMapInline embeds the map as a base64 data URL.
	SourceMapInline SourceMapMode = "inline"
)

// Config is the immutable build configuration, constructed once at startup
// from defaults merged with the fab.yaml file and passed by reference into
// every component.
type Config struct {
	// Root is the absolute project root directory.
	Root string
	// OutDir is the absolute output directory.
	OutDir string
	// Entry is the absolute path of the script entry module.
	Entry string

	// Strategy selects the bundle emission strategy.
	Strategy BundleStrategy
	// TargetSyntax is the syntax level handed to the transpiler (e.g. "es2017").
	TargetSyntax string
	// SourceMap selects the source map emission mode.
	SourceMap SourceMapMode
	// Minify enables script, style and markup compression.
	Minify bool
	// Externals lists package names that are stubbed out of the local graph.
	Externals []string

	// StyleGlobs are the root-relative glob patterns of the style sources
	// combined into the single style bundle, in bundle order.
	StyleGlobs []string
	// MarkupGlobs are the root-relative glob patterns of HTML pages.
	MarkupGlobs []string
	// AssetGlobs are the root-relative glob patterns of hashed assets.
	AssetGlobs []string
	// StaticDir is an absolute directory copied into the output verbatim.
	StaticDir string
	// PublicDir is an absolute directory copied into the output root.
	PublicDir string

	// CacheEnabled is the global cache switch; when false every cache
	// consultation is a miss.
	CacheEnabled bool
	// Parallel runs pipeline stages concurrently instead of sequentially.
	Parallel bool
	// DebounceWindow is the watch-mode settle window.
	DebounceWindow time.Duration

	styleExtensions map[string]bool
}

// Seal derives lookup state from the configured globs. It must be called once
// by the loader before the config is shared; the value is immutable afterward.
func (c *Config) Seal() {
	c.styleExtensions = make(map[string]bool, len(c.StyleGlobs))
	for _, glob := range c.StyleGlobs {
		if ext := strings.ToLower(filepath.Ext(glob)); ext != "" && !strings.ContainsAny(ext, "*?[") {
			c.styleExtensions[ext] = true
		}
	}
	if len(c.styleExtensions) == 0 {
		c.styleExtensions[".css"] = true
	}
}

// IsStylePath reports whether path carries one of the configured style
// extensions.
func (c *Config) IsStylePath(path string) bool {
	return c.styleExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsExternal reports whether the import specifier (or a path's basename
// without extension) names a configured external package.
func (c *Config) IsExternal(name string) bool {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	for _, ext := range c.Externals {
		if base == ext {
			return true
		}
	}
	return false
}
