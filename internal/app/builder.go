package app

import "go.trai.ch/fab/internal/core/ports"

// Components bundles the fully wired application for the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

// NewComponents creates a new Components struct from dependencies.
func NewComponents(application *App, logger ports.Logger) *Components {
	return &Components{
		App:    application,
		Logger: logger,
	}
}
