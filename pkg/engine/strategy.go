package engine

import (
	"context"
	"fmt"

	"github.com/aretw0/hashfsm/pkg/keylock"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// Decision maps the current state to the next one. ok is false when no
// transition applies.
type Decision func(current string) (next string, ok bool)

// Strategy performs the read-decide-write cycle of a transition on one entity
// field. Implementations differ in how they protect the cycle from
// concurrent writers.
type Strategy interface {
	Name() string

	// Apply reads field on key, asks decide for the next value and writes it.
	// It reports whether the write happened. An absent field never transitions.
	Apply(ctx context.Context, key, field string, decide Decision) (bool, error)
}

// Direct reads then writes with no protection. It is correct when the host
// serializes commands (a single-threaded command loop).
type Direct struct {
	Store ports.HashStore
}

func (Direct) Name() string { return "direct" }

func (d Direct) Apply(ctx context.Context, key, field string, decide Decision) (bool, error) {
	current, ok, err := d.Store.GetField(ctx, key, field)
	if err != nil || !ok {
		return false, err
	}
	next, ok := decide(current)
	if !ok {
		return false, nil
	}
	if err := d.Store.SetField(ctx, key, field, next); err != nil {
		return false, err
	}
	return true, nil
}

// Locked runs the Direct cycle while holding the entity's lock. With a
// distributed locker configured on Locks, the cycle is exclusive across
// processes too.
type Locked struct {
	Store ports.HashStore
	Locks *keylock.Manager
}

func (Locked) Name() string { return "locked" }

func (l Locked) Apply(ctx context.Context, key, field string, decide Decision) (bool, error) {
	var applied bool
	err := l.Locks.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		applied, err = Direct{Store: l.Store}.Apply(ctx, key, field, decide)
		return err
	})
	return applied, err
}

// CompareAndSwap writes the next state only if the field still holds the
// state the decision was based on. A concurrent writer makes Apply report
// false instead of clobbering its update.
type CompareAndSwap struct {
	Store   ports.HashStore
	Swapper ports.FieldSwapper
}

func (CompareAndSwap) Name() string { return "cas" }

func (c CompareAndSwap) Apply(ctx context.Context, key, field string, decide Decision) (bool, error) {
	current, ok, err := c.Store.GetField(ctx, key, field)
	if err != nil || !ok {
		return false, err
	}
	next, ok := decide(current)
	if !ok {
		return false, nil
	}
	return c.Swapper.SwapField(ctx, key, field, current, next)
}

// NewStrategy builds a strategy by name: "direct", "locked" or "cas".
// locks is only used by "locked" and may be nil (a fresh Manager is created).
func NewStrategy(name string, store ports.HashStore, locks *keylock.Manager) (Strategy, error) {
	switch name {
	case "", "direct":
		return Direct{Store: store}, nil
	case "locked":
		if locks == nil {
			locks = keylock.NewManager()
		}
		return Locked{Store: store, Locks: locks}, nil
	case "cas":
		swapper, ok := store.(ports.FieldSwapper)
		if !ok {
			return nil, fmt.Errorf("strategy cas: %T cannot swap fields", store)
		}
		return CompareAndSwap{Store: store, Swapper: swapper}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (want direct, locked or cas)", name)
}
