package markup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fab/internal/adapters/markup"
)

func TestMinifier_PrunesInterTagWhitespace(t *testing.T) {
	m := markup.NewMinifier()

	out, err := m.Minify(`<!DOCTYPE html>
<html>
  <head>
    <title>fab</title>
  </head>
  <body>
    <p>hello   world</p>
  </body>
</html>
`)
	require.NoError(t, err)

	assert.NotContains(t, out, "\n  ")
	assert.Contains(t, out, "<p>hello world</p>")
	assert.Contains(t, out, "<title>fab</title>")
	assert.Less(t, len(out), 120)
}

func TestMinifier_DropsComments(t *testing.T) {
	m := markup.NewMinifier()

	out, err := m.Minify(`<html><body><!-- build marker --><p>kept</p></body></html>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "build marker")
	assert.Contains(t, out, "<p>kept</p>")
}

func TestMinifier_PreservesPreformatted(t *testing.T) {
	m := markup.NewMinifier()

	out, err := m.Minify("<html><body><pre>line one\n  line two</pre></body></html>")
	require.NoError(t, err)
	assert.Contains(t, out, "line one\n  line two")
}

func TestMinifier_PreservesInlineScript(t *testing.T) {
	m := markup.NewMinifier()

	out, err := m.Minify("<html><body><script>\nconst x = 1;\n</script></body></html>")
	require.NoError(t, err)
	assert.Contains(t, out, "const x = 1;")
}

func TestRewrite_HashedReferences(t *testing.T) {
	refs := map[string]string{
		"app.js":     "app.26c7827d889f6da3.js",
		"styles.css": "styles-11f2bc48a1c0dd12.css",
	}

	out := markup.Rewrite(
		`<script src="app.js"></script><link rel="stylesheet" href='styles.css'>`,
		refs,
	)

	assert.Contains(t, out, `src="app.26c7827d889f6da3.js"`)
	assert.Contains(t, out, `href='styles-11f2bc48a1c0dd12.css'`)
}

func TestRewrite_NoReferences(t *testing.T) {
	source := `<p>plain</p>`
	assert.Equal(t, source, markup.Rewrite(source, nil))
	assert.Equal(t, source, markup.Rewrite(source, map[string]string{"a.js": "a.js"}))
}
