package ports

import (
	"context"

	"github.com/aretw0/storyweave/pkg/domain"
)

// GraphSource defines how hosts retrieve authored graphs.
// This allows the storage layer (files, Loam, memory, an editor) to be decoupled.
type GraphSource interface {
	// LoadGraph returns a graph by name.
	// Returns domain.ErrGraphNotFound if no graph has that name.
	LoadGraph(ctx context.Context, name string) (*domain.Graph, error)

	// ListGraphs returns the names of all available graphs, sorted.
	ListGraphs(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying graphs change.
	// It abstracts away the specific event details, signaling only that a reload is required.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
