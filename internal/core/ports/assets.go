package ports

import "context"

// AssetOptimizer is the image/SVG/font codec collaborator. An error from
// Optimize is a degradation, not a build failure: the caller falls back to
// copying the original bytes and logs a warning.
type AssetOptimizer interface {
	// Optimize re-encodes the asset for its target format. ext is the
	// lowercase file extension including the dot.
	Optimize(ctx context.Context, data []byte, ext string) ([]byte, error)
}

// MarkupMinifier is the HTML minifier collaborator. On failure the caller
// falls back to the unminified text.
type MarkupMinifier interface {
	Minify(html string) (string, error)
}
