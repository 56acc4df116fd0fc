package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/hashfsm/pkg/domain"
)

// Loader implements ports.DefinitionLoader using an in-memory map.
type Loader struct {
	payloads map[string][]byte
}

// NewLoader creates a new Loader with the provided raw payloads (YAML or JSON).
func NewLoader(data map[string]string) *Loader {
	payloads := make(map[string][]byte, len(data))
	for k, v := range data {
		payloads[k] = []byte(v)
	}
	return &Loader{payloads: payloads}
}

// NewFromDefinitions creates a Loader from domain objects, keyed by name.
// This handles serialization automatically, improving DX for tests.
func NewFromDefinitions(defs ...*domain.Definition) (*Loader, error) {
	payloads := make(map[string][]byte, len(defs))
	for _, d := range defs {
		if d == nil || d.Name == "" {
			return nil, fmt.Errorf("definition missing name")
		}
		data, err := domain.Encode(d)
		if err != nil {
			return nil, fmt.Errorf("failed to encode definition %s: %w", d.Name, err)
		}
		payloads[d.Name] = data
	}
	return &Loader{payloads: payloads}, nil
}

// GetDefinition retrieves the raw payload of a Definition by ID.
func (l *Loader) GetDefinition(ctx context.Context, id string) ([]byte, error) {
	content, ok := l.payloads[id]
	if !ok {
		return nil, fmt.Errorf("%w: definition %s", domain.ErrNotFound, id)
	}
	return content, nil
}

// ListDefinitions returns all available IDs.
func (l *Loader) ListDefinitions(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(l.payloads))
	for k := range l.payloads {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
