package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/hashfsm/pkg/ports"
	"github.com/aretw0/loam"
)

var (
	_ ports.DefinitionLoader = (*Loader)(nil)
	_ ports.Watchable        = (*Loader)(nil)
)

// Loader adapts a Loam repository of Definition documents to ports.DefinitionLoader.
// Each document (markdown front matter, .json or .yaml) holds one Definition;
// the markdown body is free-form documentation and is ignored.
type Loader struct {
	Repo *loam.TypedRepository[DefinitionMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[DefinitionMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path and wraps it.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric types consistent across JSON and YAML documents.
	// ReadOnly avoids Loam's sandbox behavior: definitions are only ever read.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[DefinitionMetadata](repo)), nil
}

// GetDefinition retrieves a Definition document and returns it as a JSON payload.
func (l *Loader) GetDefinition(ctx context.Context, id string) ([]byte, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}

	data, err := buildDefinitionData(doc.ID, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", id, err)
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition data: %w", err)
	}
	return bytes, nil
}

func buildDefinitionData(docID string, meta DefinitionMetadata) (map[string]any, error) {
	name := meta.Name
	if name == "" {
		name = trimExtension(filepath.Base(docID))
	}

	events := make([]map[string]any, 0, len(meta.Events))
	for i, ev := range meta.Events {
		from, err := normalizeFrom(ev.From)
		if err != nil {
			return nil, fmt.Errorf("events[%d].from: %w", i, err)
		}
		events = append(events, map[string]any{
			"name": ev.Name,
			"from": from,
			"to":   ev.To,
		})
	}

	return map[string]any{
		"name":   name,
		"prefix": meta.Prefix,
		"field":  meta.Field,
		"states": meta.States,
		"events": events,
	}, nil
}

// normalizeFrom accepts the single-state shorthand as well as a list.
func normalizeFrom(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		states := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected state name, got %T", item)
			}
			states = append(states, s)
		}
		return states, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", value)
	}
}

// ListDefinitions lists all Definition IDs in the repository.
func (l *Loader) ListDefinitions(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		id := trimExtension(doc.ID)

		// Collision Detection
		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
