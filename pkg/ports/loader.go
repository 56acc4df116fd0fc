package ports

import "context"

// DefinitionLoader defines where batches of Definitions come from.
// This allows the source (Loam directory, memory) to be decoupled from the registry.
type DefinitionLoader interface {
	// GetDefinition retrieves the raw payload of a Definition by ID.
	// The payload is YAML or JSON, parsed by the registry like any client payload.
	GetDefinition(ctx context.Context, id string) ([]byte, error)

	// ListDefinitions returns the IDs of every Definition available.
	ListDefinitions(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is used to re-create Definitions when their source file is edited.
type Watchable interface {
	// Watch returns a channel carrying the ID of each changed Definition.
	Watch(ctx context.Context) (<-chan string, error)
}
