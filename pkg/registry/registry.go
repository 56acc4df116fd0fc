package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/hashfsm/internal/logging"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// PrefixPolicy decides what happens when a prefix is already bound to
// another Definition.
type PrefixPolicy int

const (
	// Overwrite rebinds the prefix to the newest Definition (last writer wins).
	// The previous Definition stays stored but no longer governs any key.
	Overwrite PrefixPolicy = iota
	// Reject refuses the rebinding with domain.ErrPrefixTaken.
	Reject
)

func (p PrefixPolicy) String() string {
	if p == Reject {
		return "reject"
	}
	return "overwrite"
}

// ParsePrefixPolicy maps "overwrite" and "reject" to a PrefixPolicy.
func ParsePrefixPolicy(s string) (PrefixPolicy, error) {
	switch s {
	case "", "overwrite":
		return Overwrite, nil
	case "reject":
		return Reject, nil
	}
	return Overwrite, fmt.Errorf("unknown prefix policy %q (want overwrite or reject)", s)
}

// Registry is the process-wide view of Definitions and the Prefix Index.
//
// Nothing is preloaded: every lookup reads the host, so several processes
// sharing a host observe each other's changes. Create and Delete are
// serialized by an internal mutex; reads take no lock because Definitions are
// only ever replaced wholesale, never edited in place.
type Registry struct {
	host   ports.Host
	policy PrefixPolicy
	logger *slog.Logger

	mu sync.Mutex
}

// Option configures the Registry.
type Option func(*Registry)

// WithPrefixPolicy sets the prefix collision policy (default Overwrite).
func WithPrefixPolicy(p PrefixPolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a Registry over host.
func New(host ports.Host, opts ...Option) *Registry {
	r := &Registry{
		host:   host,
		policy: Overwrite,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the prefix collision policy in effect.
func (r *Registry) Policy() PrefixPolicy {
	return r.policy
}

// Create persists def and binds its prefix. Re-creating a Definition under a
// new prefix drops the binding of its old prefix. When the prefix cannot be
// bound the stored Definition is rolled back to its previous value.
func (r *Registry) Create(ctx context.Context, def *domain.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == Reject {
		owner, ok, err := r.Resolve(ctx, def.Prefix)
		if err != nil {
			return err
		}
		if ok && owner != def.Name {
			return fmt.Errorf("%w: %q is bound to %q", domain.ErrPrefixTaken, def.Prefix, owner)
		}
	}

	prev, err := r.Load(ctx, def.Name)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrWrongType):
		return fmt.Errorf("definition %q: %w", def.Name, err)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDecode):
		prev = nil
	default:
		return err
	}

	if err := r.Persist(ctx, def); err != nil {
		return err
	}
	if err := r.Register(ctx, def.Prefix, def.Name); err != nil {
		r.rollback(ctx, def.Name, prev, err)
		return err
	}

	if prev != nil && prev.Prefix != def.Prefix {
		if err := r.Unregister(ctx, prev.Prefix, def.Name); err != nil {
			return err
		}
		r.logger.Debug("Dropped stale prefix binding", "fsm", def.Name, "prefix", prev.Prefix)
	}

	r.logger.Info("Definition created", "fsm", def.Name, "prefix", def.Prefix, "states", len(def.States), "events", len(def.Events))
	return nil
}

// rollback undoes a Persist whose prefix could not be bound: the previous
// Definition is restored, or the new one removed when there was none.
func (r *Registry) rollback(ctx context.Context, name string, prev *domain.Definition, cause error) {
	var err error
	if prev != nil {
		err = r.Persist(ctx, prev)
	} else {
		err = r.Remove(ctx, name)
	}
	if err != nil {
		r.logger.Error("Definition rollback failed", "fsm", name, "cause", cause, "error", err)
		return
	}
	r.logger.Debug("Definition rolled back", "fsm", name, "cause", cause)
}

// Delete removes a Definition and every prefix binding pointing at it.
// The host releases the stored value.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, err := r.Load(ctx, name)
	switch {
	case err == nil, errors.Is(err, domain.ErrDecode):
	default:
		return err
	}

	if err := r.Remove(ctx, name); err != nil {
		return err
	}

	if def != nil {
		return r.Unregister(ctx, def.Prefix, name)
	}

	// Corrupt value: its prefix is unknown, sweep the index instead.
	bindings, err := r.Bindings(ctx)
	if err != nil {
		return err
	}
	for prefix, owner := range bindings {
		if owner == name {
			if err := r.Unregister(ctx, prefix, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lookup returns the Definition governing key, following the Prefix Index.
// Returns domain.ErrNotFound when key has no prefix or the prefix is unbound.
func (r *Registry) Lookup(ctx context.Context, key string) (*domain.Definition, error) {
	prefix, ok := domain.PrefixOf(key)
	if !ok {
		return nil, fmt.Errorf("%w: key %q has no prefix", domain.ErrNotFound, key)
	}
	name, ok, err := r.Resolve(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: prefix %q is not registered", domain.ErrNotFound, prefix)
	}
	return r.Load(ctx, name)
}

// storeErr classifies a host error: not-found kinds and decode failures pass
// through, anything else becomes domain.ErrStore.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDecode) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, op, err)
}
