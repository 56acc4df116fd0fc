package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/hashfsm/pkg/domain"
)

// Register binds prefix to the Definition called name, following the
// registry's PrefixPolicy.
func (r *Registry) Register(ctx context.Context, prefix, name string) error {
	if r.policy == Overwrite {
		prev, ok, err := r.Resolve(ctx, prefix)
		if err != nil {
			return err
		}
		if err := r.host.SetField(ctx, domain.IndexKey, prefix, name); err != nil {
			return storeErr(fmt.Sprintf("register %q", prefix), err)
		}
		if ok && prev != name {
			r.logger.Warn("Prefix rebound to a newer definition", "prefix", prefix, "previous", prev, "fsm", name)
		}
		return nil
	}

	set, err := r.host.SetFieldIfAbsent(ctx, domain.IndexKey, prefix, name)
	if err != nil {
		return storeErr(fmt.Sprintf("register %q", prefix), err)
	}
	if set {
		return nil
	}
	owner, _, err := r.Resolve(ctx, prefix)
	if err != nil {
		return err
	}
	if owner != name {
		return fmt.Errorf("%w: %q is bound to %q", domain.ErrPrefixTaken, prefix, owner)
	}
	return nil
}

// Resolve returns the Definition name bound to an exact prefix string.
func (r *Registry) Resolve(ctx context.Context, prefix string) (string, bool, error) {
	name, ok, err := r.host.GetField(ctx, domain.IndexKey, prefix)
	if err != nil {
		return "", false, storeErr(fmt.Sprintf("resolve %q", prefix), err)
	}
	return name, ok, nil
}

// Unregister removes the binding of prefix if it still points at name.
func (r *Registry) Unregister(ctx context.Context, prefix, name string) error {
	owner, ok, err := r.Resolve(ctx, prefix)
	if err != nil || !ok || owner != name {
		return err
	}
	if err := r.host.DeleteField(ctx, domain.IndexKey, prefix); err != nil {
		return storeErr(fmt.Sprintf("unregister %q", prefix), err)
	}
	return nil
}

// Bindings returns every prefix -> Definition name binding.
func (r *Registry) Bindings(ctx context.Context) (map[string]string, error) {
	all, err := r.host.Fields(ctx, domain.IndexKey)
	if err != nil {
		return nil, storeErr("list bindings", err)
	}
	return all, nil
}
