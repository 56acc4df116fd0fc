package hashfsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/hashfsm/internal/logging"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/engine"
	"github.com/aretw0/hashfsm/pkg/hook"
	"github.com/aretw0/hashfsm/pkg/observability"
	"github.com/aretw0/hashfsm/pkg/ports"
	"github.com/aretw0/hashfsm/pkg/registry"
)

// Module is the high-level entry point of the library. It wires the registry,
// the transition engine and the initialization hook over one host and exposes
// the operator commands.
type Module struct {
	host     ports.Host
	registry *registry.Registry
	engine   *engine.Engine
	hook     *hook.Initializer

	strategy engine.Strategy
	policy   registry.PrefixPolicy
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Module.
type Option func(*Module)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Module) {
		m.logger = logger
	}
}

// WithMetrics records transitions, hook outcomes and definition changes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Module) {
		m.metrics = metrics
	}
}

// WithStrategy sets how Trigger protects its read-modify-write.
// The default is engine.Direct, which assumes a host that serializes commands.
func WithStrategy(s engine.Strategy) Option {
	return func(m *Module) {
		m.strategy = s
	}
}

// WithPrefixPolicy sets the prefix collision policy (default registry.Overwrite).
func WithPrefixPolicy(p registry.PrefixPolicy) Option {
	return func(m *Module) {
		m.policy = p
	}
}

// New creates a Module over host.
func New(host ports.Host, opts ...Option) *Module {
	m := &Module{
		host:   host,
		policy: registry.Overwrite,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.registry = registry.New(host,
		registry.WithPrefixPolicy(m.policy),
		registry.WithLogger(m.logger.With("component", "registry")),
	)

	engineOpts := []engine.Option{
		engine.WithMetrics(m.metrics),
		engine.WithLogger(m.logger.With("component", "engine")),
	}
	if m.strategy != nil {
		engineOpts = append(engineOpts, engine.WithStrategy(m.strategy))
	}
	m.engine = engine.New(host, engineOpts...)

	m.hook = hook.New(m.registry, host,
		hook.WithMetrics(m.metrics),
		hook.WithLogger(m.logger.With("component", "hook")),
	)
	return m
}

// Registry returns the Definition registry.
func (m *Module) Registry() *registry.Registry { return m.registry }

// Engine returns the transition engine.
func (m *Module) Engine() *engine.Engine { return m.engine }

// Initializer returns the initialization hook.
func (m *Module) Initializer() *hook.Initializer { return m.hook }

// Create decodes a YAML or JSON Definition payload, persists it and binds its
// prefix. It returns the Definition name.
func (m *Module) Create(ctx context.Context, payload []byte) (string, error) {
	def, err := registry.Decode(payload)
	if err != nil {
		return "", err
	}
	if err := m.CreateDefinition(ctx, def); err != nil {
		return "", err
	}
	return def.Name, nil
}

// CreateDefinition validates, persists and binds an already decoded Definition.
func (m *Module) CreateDefinition(ctx context.Context, def *domain.Definition) error {
	if err := m.registry.Create(ctx, def); err != nil {
		return err
	}
	m.metrics.ObserveDefinition("create")
	return nil
}

// Definition loads the Definition stored under name.
func (m *Module) Definition(ctx context.Context, name string) (*domain.Definition, error) {
	return m.registry.Load(ctx, name)
}

// Info returns the stored form of the Definition called name.
func (m *Module) Info(ctx context.Context, name string) ([]byte, error) {
	def, err := m.registry.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return domain.Encode(def)
}

// Allowed reports whether event may fire on the entity stored under key.
func (m *Module) Allowed(ctx context.Context, fsm, key, event string) (bool, error) {
	def, err := m.registry.Load(ctx, fsm)
	if err != nil {
		return false, err
	}
	_, ok := m.engine.Allowed(ctx, def, key, event)
	return ok, nil
}

// Trigger fires event on the entity stored under key. It returns true iff
// the entity's state changed.
func (m *Module) Trigger(ctx context.Context, fsm, key, event string) (bool, error) {
	def, err := m.registry.Load(ctx, fsm)
	if err != nil {
		return false, err
	}
	return m.engine.Trigger(ctx, def, key, event), nil
}

// State returns the entity's current state. ok is false while the entity is
// uninitialized.
func (m *Module) State(ctx context.Context, fsm, key string) (string, bool, error) {
	def, err := m.registry.Load(ctx, fsm)
	if err != nil {
		return "", false, err
	}
	state, ok, err := m.engine.Current(ctx, def, key)
	if err != nil {
		return "", false, fmt.Errorf("entity %q: %w", key, err)
	}
	return state, ok, nil
}

// Events lists the events that may fire from the entity's current state.
func (m *Module) Events(ctx context.Context, fsm, key string) ([]string, error) {
	def, err := m.registry.Load(ctx, fsm)
	if err != nil {
		return nil, err
	}
	events, err := m.engine.Available(ctx, def, key)
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", key, err)
	}
	return events, nil
}

// Delete removes the Definition called name and its prefix binding.
func (m *Module) Delete(ctx context.Context, name string) error {
	if err := m.registry.Delete(ctx, name); err != nil {
		return err
	}
	m.metrics.ObserveDefinition("delete")
	return nil
}

// List returns the prefix -> Definition name bindings.
func (m *Module) List(ctx context.Context) (map[string]string, error) {
	return m.registry.Bindings(ctx)
}

// Observe attaches the initialization hook to a notifier. Close the returned
// subscription to detach it.
func (m *Module) Observe(ctx context.Context, notifier ports.Notifier) (ports.Subscription, error) {
	return m.hook.Attach(ctx, notifier)
}

// Load creates every Definition served by loader. A broken document does not
// stop the batch: the names created are returned along with the joined errors.
func (m *Module) Load(ctx context.Context, loader ports.DefinitionLoader) ([]string, error) {
	ids, err := loader.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	var created []string
	var errs []error
	for _, id := range ids {
		name, err := m.LoadOne(ctx, loader, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created = append(created, name)
	}
	return created, errors.Join(errs...)
}

// LoadOne creates the Definition served by loader under id.
func (m *Module) LoadOne(ctx context.Context, loader ports.DefinitionLoader, id string) (string, error) {
	payload, err := loader.GetDefinition(ctx, id)
	if err != nil {
		return "", err
	}
	name, err := m.Create(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", id, err)
	}
	m.logger.Debug("Definition loaded", "id", id, "fsm", name)
	return name, nil
}
