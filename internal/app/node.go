package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fab/internal/adapters/config" //nolint:depguard // Wired in app layer
	"go.trai.ch/fab/internal/adapters/esbuild"
	"go.trai.ch/fab/internal/adapters/fs"
	"go.trai.ch/fab/internal/adapters/images"
	"go.trai.ch/fab/internal/adapters/logger" //nolint:depguard // Wired in app layer
	"go.trai.ch/fab/internal/adapters/markup"
	"go.trai.ch/fab/internal/adapters/styles"
	"go.trai.ch/fab/internal/adapters/telemetry"
	"go.trai.ch/fab/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			esbuild.NodeID,
			styles.NodeID,
			images.NodeID,
			markup.NodeID,
			fs.FingerprinterNodeID,
			fs.WriterNodeID,
			telemetry.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	transpiler, err := graft.Dep[ports.Transpiler](ctx)
	if err != nil {
		return nil, err
	}

	styler, err := graft.Dep[ports.StyleCompiler](ctx)
	if err != nil {
		return nil, err
	}

	optimizer, err := graft.Dep[ports.AssetOptimizer](ctx)
	if err != nil {
		return nil, err
	}

	minifier, err := graft.Dep[ports.MarkupMinifier](ctx)
	if err != nil {
		return nil, err
	}

	fp, err := graft.Dep[ports.Fingerprinter](ctx)
	if err != nil {
		return nil, err
	}

	writer, err := graft.Dep[*fs.Writer](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, transpiler, styler, optimizer, minifier, fp, writer, tracer, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return NewComponents(application, log), nil
}
