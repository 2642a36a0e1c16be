package bundle

import (
	"fmt"
	"strings"

	"go.trai.ch/fab/internal/core/domain"
)

// closureRuntime is the private module registry and loader emitted at the top
// of every closure bundle. require is lazy and memoizing: the exports object
// is cached before the factory runs, so cyclic requires observe the same
// (partially populated) object instead of recursing forever, and every
// factory is evaluated at most once.
const closureRuntime = `var __registry = {};
var __cache = {};
function __require(id) {
  if (Object.prototype.hasOwnProperty.call(__cache, id)) {
    return __cache[id];
  }
  var factory = __registry[id];
  if (!factory) {
    throw new Error("module not found: " + id);
  }
  var exports = {};
  __cache[id] = exports;
  factory(exports, __require);
  return exports;
}
`

// generateClosure emits a self-invoking function wrapping every module in a
// factory keyed by its normalized identifier. The entry module is invoked
// last, unconditionally, exactly once.
func generateClosure(records []*domain.ModuleRecord, entry string) Bundle {
	var b strings.Builder
	b.WriteString("\"use strict\";\n(function() {\n")
	b.WriteString(closureRuntime)

	for _, rec := range records {
		id := moduleID(entry, rec.Path)
		fmt.Fprintf(&b, "\n__registry[%q] = function(exports, require) {\n", id)
		b.WriteString(rewriteSpecifiers(entry, rec))
		if !strings.HasSuffix(rec.Code, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("};\n")
	}

	fmt.Fprintf(&b, "\n__require(%q);\n})();\n", moduleID(entry, entry))

	return Bundle{
		Code:      b.String(),
		SourceMap: entrySourceMap(records, entry),
	}
}
