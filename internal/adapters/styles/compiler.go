// Package styles implements the style compiler collaborator: preprocessor
// import flattening followed by an esbuild CSS pass.
package styles

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/fab/internal/core/ports"
)

var _ ports.StyleCompiler = (*Compiler)(nil)

// importPattern matches preprocessor @import statements with a quoted
// specifier. url() imports are plain CSS and pass through untouched.
var importPattern = regexp.MustCompile(`@import\s+["']([^"']+)["']\s*;`)

// Compiler flattens preprocessor imports into a single stylesheet and
// minifies the result when asked. Plain CSS passes through the esbuild pass
// only.
type Compiler struct {
	log ports.Logger
}

// NewCompiler creates a Compiler.
func NewCompiler(log ports.Logger) *Compiler {
	return &Compiler{log: log}
}

// Compile implements ports.StyleCompiler.
func (c *Compiler) Compile(ctx context.Context, path, source string, opts ports.StyleOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	css := source
	if opts.Dialect != "" && opts.Dialect != ".css" {
		seen := map[string]bool{path: true}
		css = c.flatten(filepath.Dir(path), source, opts.Dialect, seen)
	}

	if !opts.Compressed {
		return css, nil
	}

	result := api.Transform(css, api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		Sourcefile:       path,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		// Minification is an optimization; keep the flattened text.
		c.log.Warn("css minify failed for " + path + ", emitting unminified output")
		return css, nil
	}
	return string(result.Code), nil
}

// flatten replaces each quoted @import with the referenced file's flattened
// content. An unresolvable import resolves to empty text with a warning, it
// does not abort the build.
func (c *Compiler) flatten(baseDir, source, dialect string, seen map[string]bool) string {
	return importPattern.ReplaceAllStringFunc(source, func(match string) string {
		specifier := importPattern.FindStringSubmatch(match)[1]

		path, ok := c.resolveImport(baseDir, specifier, dialect)
		if !ok {
			c.log.Warn("could not resolve style import " + strconv.Quote(specifier) + " from " + baseDir)
			return ""
		}
		if seen[path] {
			return ""
		}
		seen[path] = true

		data, err := os.ReadFile(path) //nolint:gosec // Path derives from project sources
		if err != nil {
			c.log.Warn("could not read style import " + path)
			return ""
		}
		return c.flatten(filepath.Dir(path), string(data), dialect, seen)
	})
}

// resolveImport tries the preprocessor partial conventions in order: the
// specifier itself, with the dialect extension, with a leading underscore,
// and as a directory index.
func (c *Compiler) resolveImport(baseDir, specifier, dialect string) (string, bool) {
	dir := filepath.Join(baseDir, filepath.Dir(specifier))
	name := filepath.Base(specifier)

	candidates := []string{
		filepath.Join(dir, name),
		filepath.Join(dir, name+dialect),
		filepath.Join(dir, "_"+name+dialect),
		filepath.Join(dir, name, "index"+dialect),
		filepath.Join(dir, name, "_index"+dialect),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}
