package graph

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/fab/internal/core/domain"
)

// importPatterns match the three static import forms the extractor
// recognizes: import statements, dynamic import calls and require calls.
// Extraction is purely textual; it does not depend on traversal state.
var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)import\s+(?:[\w$*{},\s]+from\s+)?["']([^"']+)["']`),
	regexp.MustCompile(`(?m)export\s+[\w$*{},\s]+from\s+["']([^"']+)["']`),
	regexp.MustCompile(`import\(\s*["']([^"']+)["']\s*\)`),
	regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`),
}

const extractorCacheSize = 512

// Extractor scans source text for local import specifiers. Results are
// memoized by content fingerprint, which is safe because extraction is a pure
// function of the text.
type Extractor struct {
	memo *lru.Cache[domain.Fingerprint, []string]
}

// NewExtractor creates an Extractor with a bounded memoization cache.
func NewExtractor() *Extractor {
	memo, err := lru.New[domain.Fingerprint, []string](extractorCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &Extractor{memo: memo}
}

// Extract returns the distinct relative import specifiers referenced by
// source, in first-seen order. Specifiers that do not begin with a
// path-relative marker name external packages and are excluded.
func (e *Extractor) Extract(fp domain.Fingerprint, source string) []string {
	if !fp.IsZero() {
		if specs, ok := e.memo.Get(fp); ok {
			return specs
		}
	}

	seen := make(map[string]bool)
	var specs []string
	for _, pattern := range importPatterns {
		for _, match := range pattern.FindAllStringSubmatch(source, -1) {
			spec := match[1]
			if !isRelative(spec) || seen[spec] {
				continue
			}
			seen[spec] = true
			specs = append(specs, spec)
		}
	}

	if !fp.IsZero() {
		e.memo.Add(fp, specs)
	}
	return specs
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}
