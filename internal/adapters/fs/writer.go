package fs

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"go.trai.ch/zerr"
)

// Writer emits output artifacts with content-hashed names and removes
// superseded ones. All returned artifact paths are absolute.
type Writer struct {
	fp ports.Fingerprinter
}

// NewWriter creates a Writer.
func NewWriter(fp ports.Fingerprinter) *Writer {
	return &Writer{fp: fp}
}

// WriteScriptBundle writes the entry bundle as <outDir>/<base>.<hash><ext>
// and emits the source map per the configured mode.
func (w *Writer) WriteScriptBundle(cfg *domain.Config, code string, sourceMap []byte) (string, error) {
	ext := filepath.Ext(cfg.Entry)
	base := strings.TrimSuffix(filepath.Base(cfg.Entry), ext)
	if ext == "" || ext == ".ts" || ext == ".tsx" || ext == ".jsx" {
		ext = ".js"
	}

	// The artifact is hashed before the map reference is appended so the
	// name does not depend on its own comment.
	hash := w.fp.HashBytes([]byte(code))
	name := base + "." + hash.String() + ext
	path := filepath.Join(cfg.OutDir, name)

	code, mapData := w.applySourceMap(cfg, code, sourceMap, name+".map")

	if err := w.removeSuperseded(cfg.OutDir, base+".", ext, name); err != nil {
		return "", err
	}
	if err := w.WriteFile(path, []byte(code)); err != nil {
		return "", err
	}
	if mapData != nil {
		if err := w.WriteFile(path+".map", mapData); err != nil {
			return "", err
		}
	}
	return path, nil
}

// WriteStyleBundle writes the combined style bundle as styles-<hash>.css.
func (w *Writer) WriteStyleBundle(cfg *domain.Config, css string) (string, error) {
	hash := w.fp.HashBytes([]byte(css))
	name := "styles-" + hash.String() + ".css"
	path := filepath.Join(cfg.OutDir, name)
	if err := w.removeSuperseded(cfg.OutDir, "styles-", ".css", name); err != nil {
		return "", err
	}
	if err := w.WriteFile(path, []byte(css)); err != nil {
		return "", err
	}
	return path, nil
}

// WriteHashedAsset writes data as <name>-<hash><ext>, preserving rel's
// directory under the output directory.
func (w *Writer) WriteHashedAsset(cfg *domain.Config, rel string, data []byte) (string, error) {
	ext := filepath.Ext(rel)
	base := strings.TrimSuffix(filepath.Base(rel), ext)
	hash := w.fp.HashBytes(data)
	name := base + "-" + hash.String() + ext
	dir := filepath.Join(cfg.OutDir, filepath.Dir(rel))
	path := filepath.Join(dir, name)

	if err := w.removeSuperseded(dir, base+"-", ext, name); err != nil {
		return "", err
	}
	if err := w.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRawAsset writes data under the output directory at rel, keeping the
// original basename. Used for classes consumed by fixed URLs.
func (w *Writer) WriteRawAsset(cfg *domain.Config, rel string, data []byte) (string, error) {
	path := filepath.Join(cfg.OutDir, rel)
	if err := w.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile writes data to path, creating parent directories as needed.
func (w *Writer) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(errors.Join(domain.ErrOutputWriteFailed, err), "path", path)
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(errors.Join(domain.ErrOutputWriteFailed, err), "path", path)
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories as needed.
func (w *Writer) CopyFile(src, dst string) error {
	data, err := os.ReadFile(src) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return zerr.With(errors.Join(domain.ErrFileOpenFailed, err), "path", src)
	}
	return w.WriteFile(dst, data)
}

// RemoveArtifact deletes a superseded hashed artifact and its sidecars
// (source map, import map). Stale hashed artifacts must never accumulate.
func (w *Writer) RemoveArtifact(path string) error {
	if path == "" {
		return nil
	}
	for _, p := range []string{path, path + ".map", path + ".importmap.json"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return zerr.With(errors.Join(domain.ErrStaleCleanupFailed, err), "path", p)
		}
	}
	return nil
}

// contentHashPattern matches the hex digest the fingerprinter embeds in
// artifact names.
const contentHashPattern = "[0-9a-f]{16}"

// removeSuperseded deletes every artifact in dir whose name matches
// <prefix><hash><ext>, except keep. Caches only know about artifacts written
// during the current process, so leftovers from earlier runs are swept by
// name shape instead.
func (w *Writer) removeSuperseded(dir, prefix, ext, keep string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zerr.With(errors.Join(domain.ErrStaleCleanupFailed, err), "path", dir)
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + contentHashPattern + regexp.QuoteMeta(ext) + "$")
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == keep || !pattern.MatchString(name) {
			continue
		}
		if err := w.RemoveArtifact(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// Clean removes the output directory entirely.
func (w *Writer) Clean(cfg *domain.Config) error {
	if err := os.RemoveAll(cfg.OutDir); err != nil {
		return zerr.With(errors.Join(domain.ErrStaleCleanupFailed, err), "path", cfg.OutDir)
	}
	return nil
}

// applySourceMap appends the source map reference to the code per the
// configured mode and returns the sidecar bytes for external mode.
func (w *Writer) applySourceMap(cfg *domain.Config, code string, sourceMap []byte, mapName string) (string, []byte) {
	if len(sourceMap) == 0 {
		return code, nil
	}
	switch cfg.SourceMap {
	case domain.SourceMapExternal:
		return code + "\n//# sourceMappingURL=" + mapName + "\n", sourceMap
	case domain.SourceMapInline:
		encoded := base64.StdEncoding.EncodeToString(sourceMap)
		return code + "\n//# sourceMappingURL=data:application/json;base64," + encoded + "\n", nil
	default:
		return code, nil
	}
}
