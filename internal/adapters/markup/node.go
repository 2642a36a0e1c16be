package markup

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fab/internal/core/ports"
)

// NodeID is the unique identifier for the markup minifier Graft node.
const NodeID graft.ID = "adapter.markup"

func init() {
	graft.Register(graft.Node[ports.MarkupMinifier]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.MarkupMinifier, error) {
			return NewMinifier(), nil
		},
	})
}
