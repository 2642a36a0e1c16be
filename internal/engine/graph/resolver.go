// Package graph builds the module dependency graph for the script bundle:
// it resolves import specifiers, extracts imports from transpiled source and
// registers every reachable local module exactly once.
package graph

import (
	"os"
	"path/filepath"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/zerr"
)

// resolveExtensions is the fixed search order for import specifiers. The
// empty entry tries the specifier as written.
var resolveExtensions = []string{"", ".js", ".jsx", ".ts", ".tsx"}

// Resolve maps an import specifier plus the requesting file's directory to an
// absolute file path. It tries the specifier with each extension, then the
// same with an implicit index suffix, and returns the first existing file.
func Resolve(baseDir, specifier string) (string, error) {
	candidate := filepath.Join(baseDir, specifier)

	for _, ext := range resolveExtensions {
		if path, ok := statFile(candidate + ext); ok {
			return path, nil
		}
	}

	index := filepath.Join(candidate, "index")
	for _, ext := range resolveExtensions {
		if path, ok := statFile(index + ext); ok {
			return path, nil
		}
	}

	err := zerr.With(zerr.Wrap(domain.ErrModuleNotFound, "no file matches import specifier"), "specifier", specifier)
	return "", zerr.With(err, "base_dir", baseDir)
}

// statFile reports whether path exists and is a regular file, returning the
// absolute path on success.
func statFile(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	return abs, true
}
