package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// Unreachable returns the states no event path leads to from the initial
// state, in declaration order.
func Unreachable(def *domain.Definition) []string {
	initial := def.InitialState()
	if initial == "" {
		return nil
	}

	// Crawler
	visited := map[string]bool{initial: true}
	queue := []string{initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range targetsFrom(def, current) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	var unreachable []string
	for _, s := range def.States {
		if !visited[s] {
			unreachable = append(unreachable, s)
		}
	}
	return unreachable
}

func targetsFrom(def *domain.Definition, state string) []string {
	var targets []string
	for _, name := range def.Available(state) {
		if ev, ok := def.Event(name); ok {
			targets = append(targets, ev.To)
		}
	}
	return targets
}

// ValidateDefinitions checks every document served by loader: each must parse
// into a valid Definition, names and prefixes must be unique across
// documents, and every state must be reachable from the initial state.
func ValidateDefinitions(ctx context.Context, loader ports.DefinitionLoader) error {
	ids, err := loader.ListDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("list definitions: %w", err)
	}

	var errors []string
	names := make(map[string]string)
	prefixes := make(map[string]string)

	for _, id := range ids {
		payload, err := loader.GetDefinition(ctx, id)
		if err != nil {
			errors = append(errors, fmt.Sprintf("'%s': load error: %v", id, err))
			continue
		}
		def, err := domain.ParsePayload(payload)
		if err != nil {
			errors = append(errors, fmt.Sprintf("'%s': %v", id, err))
			continue
		}

		if other, dup := names[def.Name]; dup {
			errors = append(errors, fmt.Sprintf("'%s': name %q already defined by '%s'", id, def.Name, other))
		}
		names[def.Name] = id

		if other, dup := prefixes[def.Prefix]; dup {
			errors = append(errors, fmt.Sprintf("'%s': prefix %q already bound by '%s'", id, def.Prefix, other))
		}
		prefixes[def.Prefix] = id

		if lost := Unreachable(def); len(lost) > 0 {
			errors = append(errors, fmt.Sprintf("'%s': unreachable states from %q: %s", id, def.InitialState(), strings.Join(lost, ", ")))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}
