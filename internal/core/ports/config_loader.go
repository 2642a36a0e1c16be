package ports

import "go.trai.ch/fab/internal/core/domain"

// ConfigLoader defines the interface for loading the build configuration.
type ConfigLoader interface {
	// Load reads fab.yaml from the given working directory, merges it over
	// the defaults and returns the sealed configuration.
	Load(cwd string) (*domain.Config, error)
}
