package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/fab/internal/core/domain"
)

func classifyConfig() *domain.Config {
	cfg := &domain.Config{
		Root:       "/project",
		StaticDir:  "/project/static",
		PublicDir:  "/project/public",
		StyleGlobs: []string{"styles/*.scss", "styles/*.css"},
	}
	cfg.Seal()
	return cfg
}

func TestConfig_Classify(t *testing.T) {
	cfg := classifyConfig()

	tests := []struct {
		path string
		want domain.AssetClass
	}{
		{"/project/src/main.js", domain.ClassScripts},
		{"/project/src/app.tsx", domain.ClassScripts},
		{"/project/styles/main.scss", domain.ClassStyles},
		{"/project/styles/reset.css", domain.ClassStyles},
		{"/project/index.html", domain.ClassMarkup},
		{"/project/assets/logo.svg", domain.ClassAssets},
		{"/project/assets/font.woff2", domain.ClassAssets},
		{"/project/static/robots.txt", domain.ClassStatic},
		{"/project/static/legacy.js", domain.ClassStatic},
		{"/project/public/favicon.ico", domain.ClassStatic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.Classify(tt.path), tt.path)
	}
}

func TestConfig_ClassifyAll(t *testing.T) {
	cfg := classifyConfig()

	set := cfg.ClassifyAll([]string{
		"/project/src/main.js",
		"/project/src/util.js",
		"/project/styles/main.scss",
	})

	assert.Equal(t, []domain.AssetClass{domain.ClassScripts, domain.ClassStyles}, set.Classes())
	assert.True(t, set.Has(domain.ClassScripts))
	assert.False(t, set.Has(domain.ClassMarkup))
}

func TestInterestSet_ClassesInPipelineOrder(t *testing.T) {
	set := make(domain.InterestSet)
	set.Add(domain.ClassMarkup)
	set.Add(domain.ClassScripts)
	set.Add(domain.ClassStatic)

	assert.Equal(t,
		[]domain.AssetClass{domain.ClassScripts, domain.ClassStatic, domain.ClassMarkup},
		set.Classes())
}

func TestIsScriptPath(t *testing.T) {
	assert.True(t, domain.IsScriptPath(filepath.Join("src", "main.ts")))
	assert.True(t, domain.IsScriptPath("App.JSX"))
	assert.False(t, domain.IsScriptPath("main.css"))
	assert.False(t, domain.IsScriptPath("README"))
}
