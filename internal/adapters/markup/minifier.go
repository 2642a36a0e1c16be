// Package markup implements the HTML minifier collaborator and artifact
// reference rewriting.
package markup

import (
	"bytes"
	"errors"
	"strings"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
	"golang.org/x/net/html"
)

var _ ports.MarkupMinifier = (*Minifier)(nil)

// preformatted tags keep their whitespace verbatim.
var preformatted = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// Minifier prunes inter-tag whitespace from HTML. The caller falls back to
// the unminified text on error.
type Minifier struct{}

// NewMinifier creates a Minifier.
func NewMinifier() *Minifier {
	return &Minifier{}
}

// Minify implements ports.MarkupMinifier.
func (m *Minifier) Minify(source string) (string, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return "", errors.Join(domain.ErrCollaboratorDegraded, err)
	}

	prune(doc, false)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", errors.Join(domain.ErrCollaboratorDegraded, err)
	}
	return buf.String(), nil
}

// prune collapses whitespace in text nodes and drops the ones left empty.
// Text inside preformatted elements is untouched.
func prune(n *html.Node, pre bool) {
	if n.Type == html.ElementNode && preformatted[n.Data] {
		pre = true
	}

	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling

		if child.Type == html.CommentNode && !pre {
			n.RemoveChild(child)
			continue
		}
		if child.Type == html.TextNode && !pre {
			collapsed := collapse(child.Data)
			if collapsed == "" {
				n.RemoveChild(child)
				continue
			}
			child.Data = collapsed
			continue
		}
		prune(child, pre)
	}
}

// collapse folds runs of whitespace into single spaces. A text node that was
// only whitespace collapses to empty.
func collapse(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

// Rewrite replaces artifact references with their content-hashed names, e.g.
// src="app.js" becomes src="app.<hash>.js". Keys and values are the bare
// names as they appear in href/src attributes.
func Rewrite(source string, refs map[string]string) string {
	pairs := make([]string, 0, len(refs)*4)
	for old, hashed := range refs {
		if old == "" || old == hashed {
			continue
		}
		pairs = append(pairs,
			`"`+old+`"`, `"`+hashed+`"`,
			`'`+old+`'`, `'`+hashed+`'`,
		)
	}
	if len(pairs) == 0 {
		return source
	}
	return strings.NewReplacer(pairs...).Replace(source)
}
