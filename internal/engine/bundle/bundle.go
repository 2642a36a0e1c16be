// Package bundle turns a module graph into a single emitted artifact, using
// either a self-executing closure with a private module registry or a
// best-effort ESM-flavored concatenation.
package bundle

import (
	"path/filepath"
	"strings"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/zerr"
)

// Bundle is the generated artifact: code, the entry module's source map, and
// the import-map sidecar emitted by the ESM strategy (nil otherwise).
type Bundle struct {
	Code      string
	SourceMap []byte
	ImportMap map[string]string
}

// Generate emits the module collection with the configured strategy. Both
// strategies are pure functions of the records and the entry path; records
// must be in traversal order with the entry first.
func Generate(strategy domain.BundleStrategy, records []*domain.ModuleRecord, entry string) (Bundle, error) {
	switch strategy {
	case domain.StrategyClosure:
		return generateClosure(records, entry), nil
	case domain.StrategyESM:
		return generateESM(records, entry), nil
	default:
		return Bundle{}, zerr.With(zerr.Wrap(domain.ErrUnknownStrategy, "cannot generate bundle"), "strategy", string(strategy))
	}
}

// moduleID normalizes a module path into its registry identifier: the path
// made relative to the entry's directory, slash-separated, extension
// stripped.
func moduleID(entry, path string) string {
	if strings.HasPrefix(path, domain.ExternalModulePrefix) {
		return strings.TrimPrefix(path, domain.ExternalModulePrefix)
	}
	rel, err := filepath.Rel(filepath.Dir(entry), path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// rewriteSpecifiers replaces every quoted import specifier in the module's
// code with the registry identifier of the module it resolved to.
func rewriteSpecifiers(entry string, rec *domain.ModuleRecord) string {
	code := rec.Code
	for spec, path := range rec.Imports {
		id := moduleID(entry, path)
		if spec == id {
			continue
		}
		code = strings.ReplaceAll(code, `"`+spec+`"`, `"`+id+`"`)
		code = strings.ReplaceAll(code, `'`+spec+`'`, `"`+id+`"`)
	}
	return code
}

// entrySourceMap preserves the entry module's source map association for the
// packaging step.
func entrySourceMap(records []*domain.ModuleRecord, entry string) []byte {
	for _, rec := range records {
		if rec.Path == entry {
			return rec.SourceMap
		}
	}
	return nil
}
