package domain

import (
	"path/filepath"
	"strings"
)

// AssetClass identifies one of the fixed processing stages of the pipeline.
// Each class owns its own cache and its own output conventions.
type AssetClass string

const (
	// ClassScripts is the bundled script entry graph.
	ClassScripts AssetClass = "scripts"
	// ClassStyles is the combined style bundle.
	ClassStyles AssetClass = "styles"
	// ClassMarkup is HTML pages with rewritten artifact references.
	ClassMarkup AssetClass = "markup"
	// ClassAssets is content-hashed images, icons and fonts.
	ClassAssets AssetClass = "assets"
	// ClassStatic is the verbatim passthrough copy.
	ClassStatic AssetClass = "static"
)

// AllClasses lists every asset class in pipeline order.
var AllClasses = []AssetClass{ClassScripts, ClassStyles, ClassAssets, ClassStatic, ClassMarkup}

// scriptExtensions are the extensions that feed the module graph.
var scriptExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
}

// IsScriptPath reports whether path has a script extension.
func IsScriptPath(path string) bool {
	return scriptExtensions[strings.ToLower(filepath.Ext(path))]
}

// InterestSet is the subset of asset classes implicated by a batch of
// changed files.
type InterestSet map[AssetClass]struct{}

// Has reports whether the class is in the set.
func (s InterestSet) Has(class AssetClass) bool {
	_, ok := s[class]
	return ok
}

// Add inserts the class into the set.
func (s InterestSet) Add(class AssetClass) {
	s[class] = struct{}{}
}

// Classes returns the interested classes in pipeline order.
func (s InterestSet) Classes() []AssetClass {
	res := make([]AssetClass, 0, len(s))
	for _, class := range AllClasses {
		if s.Has(class) {
			res = append(res, class)
		}
	}
	return res
}

// Classify maps a changed file path to the asset class whose stage must
// re-run. Paths under the static or public passthrough directories always
// belong to the static-copy class, regardless of extension.
func (c *Config) Classify(path string) AssetClass {
	if c.underDir(path, c.StaticDir) || c.underDir(path, c.PublicDir) {
		return ClassStatic
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case scriptExtensions[ext]:
		return ClassScripts
	case c.styleExtensions[ext]:
		return ClassStyles
	case ext == ".html":
		return ClassMarkup
	default:
		return ClassAssets
	}
}

// ClassifyAll folds a batch of changed paths into an interest set.
func (c *Config) ClassifyAll(paths []string) InterestSet {
	set := make(InterestSet, len(AllClasses))
	for _, path := range paths {
		set.Add(c.Classify(path))
	}
	return set
}

func (c *Config) underDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
