// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/fab/internal/adapters/config"
	_ "go.trai.ch/fab/internal/adapters/esbuild"
	_ "go.trai.ch/fab/internal/adapters/fs"
	_ "go.trai.ch/fab/internal/adapters/images"
	_ "go.trai.ch/fab/internal/adapters/logger"
	_ "go.trai.ch/fab/internal/adapters/markup"
	_ "go.trai.ch/fab/internal/adapters/styles"
	_ "go.trai.ch/fab/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/fab/internal/app"
)
