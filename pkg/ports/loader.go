package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/catalog"
)

// CatalogLoader defines how the engine retrieves catalog documents.
// This allows the storage layer (files, memory) to be decoupled.
type CatalogLoader interface {
	// Load reads the three catalog documents. Documents that cannot be read are
	// left nil and reported through a *catalog.LoadError.
	Load(ctx context.Context) (catalog.Documents, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// A notification never reloads anything by itself; the host decides to call Reload.
type Watchable interface {
	// Watch returns a channel that is signaled when a catalog document changes.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
