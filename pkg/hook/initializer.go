package hook

import (
	"context"
	"log/slog"

	"github.com/aretw0/hashfsm/internal/logging"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/observability"
	"github.com/aretw0/hashfsm/pkg/ports"
	"github.com/aretw0/hashfsm/pkg/registry"
)

// Initializer stamps the initial state onto governed entities the first time
// they are written. It observes mutations it does not own: it never returns
// errors and never overwrites an existing state.
type Initializer struct {
	registry *registry.Registry
	store    ports.HashStore
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures the Initializer.
type Option func(*Initializer)

// WithMetrics records hook outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Initializer) {
		i.metrics = m
	}
}

// WithLogger configures a logger for the Initializer.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Initializer) {
		i.logger = logger
	}
}

// New creates an Initializer resolving keys through reg and stamping fields
// through store.
func New(reg *registry.Registry, store ports.HashStore, opts ...Option) *Initializer {
	i := &Initializer{
		registry: reg,
		store:    store,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Attach subscribes the Initializer to notifier.
func (i *Initializer) Attach(ctx context.Context, notifier ports.Notifier) (ports.Subscription, error) {
	return notifier.Subscribe(ctx, i.Handle)
}

// Handle processes one host notification.
func (i *Initializer) Handle(ctx context.Context, n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Initialization hook panicked", "key", n.Key, "event", n.Event, "panic", r)
		}
	}()

	if !n.IsHashWrite() {
		return
	}
	prefix, ok := domain.PrefixOf(n.Key)
	if !ok {
		return
	}

	name, ok, err := i.registry.Resolve(ctx, prefix)
	if err != nil {
		i.logger.Warn("Initialization hook: prefix lookup failed", "key", n.Key, "err", err)
		return
	}
	if !ok {
		return
	}

	def, err := i.registry.Load(ctx, name)
	if err != nil {
		i.metrics.ObserveInitialization(name, observability.InitFailed)
		i.logger.Warn("Initialization hook: definition unavailable", "key", n.Key, "fsm", name, "err", err)
		return
	}

	if _, present, err := i.store.GetField(ctx, n.Key, def.Field); err != nil || present {
		if err != nil {
			i.metrics.ObserveInitialization(def.Name, observability.InitFailed)
			i.logger.Warn("Initialization hook: state read failed", "key", n.Key, "fsm", def.Name, "err", err)
			return
		}
		i.metrics.ObserveInitialization(def.Name, observability.InitPresent)
		return
	}

	// Set-if-absent keeps the stamp idempotent against a concurrent writer.
	stamped, err := i.store.SetFieldIfAbsent(ctx, n.Key, def.Field, def.InitialState())
	switch {
	case err != nil:
		i.metrics.ObserveInitialization(def.Name, observability.InitFailed)
		i.logger.Warn("Initialization hook: stamp failed", "key", n.Key, "fsm", def.Name, "err", err)
	case stamped:
		i.metrics.ObserveInitialization(def.Name, observability.InitStamped)
		i.logger.Debug("Entity initialized", "key", n.Key, "fsm", def.Name, "field", def.Field, "state", def.InitialState())
	default:
		i.metrics.ObserveInitialization(def.Name, observability.InitPresent)
	}
}
