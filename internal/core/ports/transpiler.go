// Package ports defines the core interfaces for the application.
package ports

import "context"

// TranspileOptions configures one transform invocation.
type TranspileOptions struct {
	// Loader selects the input syntax by extension (".js", ".jsx", ".ts", ".tsx").
	Loader string
	// TargetSyntax is the output syntax level, e.g. "es2017".
	TargetSyntax string
	// SourceMap requests a source map alongside the transformed code.
	SourceMap bool
	// Minify compresses the output.
	Minify bool
}

// TranspileResult is the transformed code plus its source map, if requested.
type TranspileResult struct {
	Code string
	Map  []byte
}

// Transpiler is the language transpiler collaborator. Failures propagate as
// fatal build errors.
type Transpiler interface {
	// Transform compiles one module's source text. path is used for
	// diagnostics and source map naming only.
	Transform(ctx context.Context, path, source string, opts TranspileOptions) (TranspileResult, error)
}
