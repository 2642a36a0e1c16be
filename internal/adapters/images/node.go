package images

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fab/internal/core/ports"
)

// NodeID is the unique identifier for the asset optimizer Graft node.
const NodeID graft.ID = "adapter.images"

// defaultQuality is the lossy re-encode quality.
const defaultQuality = 80

func init() {
	graft.Register(graft.Node[ports.AssetOptimizer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.AssetOptimizer, error) {
			return NewOptimizer(defaultQuality), nil
		},
	})
}
