package ports

import "context"

// StyleOptions configures one style compilation.
type StyleOptions struct {
	// Dialect is selected by file extension; plain CSS passes through.
	Dialect string
	// Compressed minifies the compiled output.
	Compressed bool
}

// StyleCompiler is the style preprocessor/post-processor collaborator.
type StyleCompiler interface {
	// Compile turns one style source into CSS text. path anchors relative
	// imports and diagnostics.
	Compile(ctx context.Context, path, source string, opts StyleOptions) (string, error)
}
