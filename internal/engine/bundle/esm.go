package bundle

import (
	"fmt"
	"strings"

	"go.trai.ch/fab/internal/core/domain"
)

// generateESM emits each module as a top-level binding wrapping an
// immediately-invoked block, with in-module require calls resolved through a
// registry of those bindings, plus a sidecar import map from module
// identifier to binding name.
//
// Best effort only: bindings are emitted dependencies-first from the
// traversal order, so a synchronous circular import may observe a
// partially-initialized binding. The closure strategy is the reference
// semantics for cycles.
func generateESM(records []*domain.ModuleRecord, entry string) Bundle {
	importMap := make(map[string]string, len(records))

	var b strings.Builder
	b.WriteString("const __modules = Object.create(null);\n")
	b.WriteString("const require = (id) => __modules[id];\n")

	// Reverse traversal order approximates dependencies-before-dependents.
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		id := moduleID(entry, rec.Path)
		binding := bindingName(id)
		importMap[id] = binding

		fmt.Fprintf(&b, "\nconst %s = (() => {\nconst exports = {};\n", binding)
		b.WriteString(rewriteSpecifiers(entry, rec))
		if !strings.HasSuffix(rec.Code, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "return exports;\n})();\n__modules[%q] = %s;\n", id, binding)
	}

	fmt.Fprintf(&b, "\nexport default %s;\n", bindingName(moduleID(entry, entry)))

	return Bundle{
		Code:      b.String(),
		SourceMap: entrySourceMap(records, entry),
		ImportMap: importMap,
	}
}

// bindingName derives a valid identifier from a module identifier.
func bindingName(id string) string {
	var b strings.Builder
	b.WriteString("__fab_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
