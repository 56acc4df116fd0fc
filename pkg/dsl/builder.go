package dsl

import (
	"fmt"

	"github.com/aretw0/hashfsm/pkg/adapters/memory"
	"github.com/aretw0/hashfsm/pkg/domain"
)

// Builder manages the Definition construction.
type Builder struct {
	def    domain.Definition
	events map[string]*EventBuilder
	order  []*EventBuilder
}

// New creates a builder for the Definition called name. The state field
// defaults to "state".
func New(name string) *Builder {
	return &Builder{
		def:    domain.Definition{Name: name, Field: "state"},
		events: make(map[string]*EventBuilder),
	}
}

// Prefix sets the key prefix of governed entities, e.g. "job:".
func (b *Builder) Prefix(prefix string) *Builder {
	b.def.Prefix = prefix
	return b
}

// Field sets the hash attribute holding the current state.
func (b *Builder) Field(field string) *Builder {
	b.def.Field = field
	return b
}

// States appends states. The first state ever added is the initial state.
func (b *Builder) States(states ...string) *Builder {
	b.def.States = append(b.def.States, states...)
	return b
}

// Event creates a new event in the Definition.
// If the event already exists, it returns the existing builder.
func (b *Builder) Event(name string) *EventBuilder {
	if eb, ok := b.events[name]; ok {
		return eb
	}
	eb := &EventBuilder{event: domain.Event{Name: name}, builder: b}
	b.events[name] = eb
	b.order = append(b.order, eb)
	return eb
}

// Build validates and returns the Definition. Events keep their declaration order.
func (b *Builder) Build() (*domain.Definition, error) {
	def := b.def
	def.States = append([]string(nil), b.def.States...)
	def.Events = make([]domain.Event, 0, len(b.order))
	for _, eb := range b.order {
		ev := eb.event
		ev.From = append([]string(nil), eb.event.From...)
		def.Events = append(def.Events, ev)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Loader compiles several builders into a memory.Loader keyed by Definition name.
func Loader(builders ...*Builder) (*memory.Loader, error) {
	defs := make([]*domain.Definition, 0, len(builders))
	for _, b := range builders {
		def, err := b.Build()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	loader, err := memory.NewFromDefinitions(defs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

// EventBuilder provides a fluent API for configuring an event.
type EventBuilder struct {
	event   domain.Event
	builder *Builder
}

// From adds source states.
func (e *EventBuilder) From(states ...string) *EventBuilder {
	e.event.From = append(e.event.From, states...)
	return e
}

// To sets the target state and returns the Definition builder.
func (e *EventBuilder) To(state string) *Builder {
	e.event.To = state
	return e.builder
}
