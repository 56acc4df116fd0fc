package engine

import (
	"context"
	"log/slog"

	"github.com/aretw0/hashfsm/internal/logging"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/observability"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// Engine decides and applies transitions of governed entities.
type Engine struct {
	store    ports.HashStore
	strategy Strategy
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithStrategy sets how Trigger protects its read-modify-write (default Direct).
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithMetrics records transition outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine reading and writing entity fields through store.
func New(store ports.HashStore, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategy == nil {
		e.strategy = Direct{Store: store}
	}
	return e
}

// Strategy returns the strategy used by Trigger.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Current reads the entity's state field.
func (e *Engine) Current(ctx context.Context, def *domain.Definition, key string) (string, bool, error) {
	return e.store.GetField(ctx, key, def.Field)
}

// Allowed returns the event that would fire for the entity's current state.
// An uninitialized entity, a failed read or an unknown event yield no event.
// It never writes.
func (e *Engine) Allowed(ctx context.Context, def *domain.Definition, key, event string) (*domain.Event, bool) {
	current, ok, err := e.Current(ctx, def, key)
	if err != nil {
		e.logger.Debug("Allowed: state read failed", "fsm", def.Name, "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return def.Transition(event, current)
}

// Available lists the events that may fire from the entity's current state.
func (e *Engine) Available(ctx context.Context, def *domain.Definition, key string) ([]string, error) {
	current, ok, err := e.Current(ctx, def, key)
	if err != nil || !ok {
		return []string{}, err
	}
	return def.Available(current), nil
}

// Trigger fires event on the entity. It returns true iff the current state
// was a source of the event and the state field was written to its target.
func (e *Engine) Trigger(ctx context.Context, def *domain.Definition, key, event string) bool {
	var fired *domain.Event
	var from string
	applied, err := e.strategy.Apply(ctx, key, def.Field, func(current string) (string, bool) {
		ev, ok := def.Transition(event, current)
		if !ok {
			return "", false
		}
		fired, from = ev, current
		return ev.To, true
	})

	switch {
	case err != nil:
		e.metrics.ObserveTransition(def.Name, event, observability.TransitionFailed)
		e.logger.Warn("Transition failed", "fsm", def.Name, "key", key, "event", event, "strategy", e.strategy.Name(), "err", err)
		return false
	case !applied:
		e.metrics.ObserveTransition(def.Name, event, observability.TransitionRejected)
		e.logger.Debug("Transition rejected", "fsm", def.Name, "key", key, "event", event)
		return false
	}

	e.metrics.ObserveTransition(def.Name, event, observability.TransitionApplied)
	e.logger.Debug("Transition applied", "fsm", def.Name, "key", key, "event", event, "from", from, "to", fired.To)
	return true
}
