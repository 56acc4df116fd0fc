package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/hashfsm/pkg/domain"
)

// Decode parses and validates a caller-supplied Definition payload.
func Decode(payload []byte) (*domain.Definition, error) {
	return domain.ParsePayload(payload)
}

// Persist stores def under its name as an opaque typed value, replacing any
// prior value.
func (r *Registry) Persist(ctx context.Context, def *domain.Definition) error {
	if err := r.host.PutValue(ctx, def.Name, DefinitionType{}, def); err != nil {
		return storeErr(fmt.Sprintf("persist %q", def.Name), err)
	}
	return nil
}

// Load returns the Definition stored under name.
// Returns domain.ErrNotFound if absent, domain.ErrWrongType if name holds
// something else and domain.ErrDecode if the stored bytes are corrupt.
func (r *Registry) Load(ctx context.Context, name string) (*domain.Definition, error) {
	v, err := r.host.GetValue(ctx, name, DefinitionType{})
	if err != nil {
		return nil, storeErr(fmt.Sprintf("load %q", name), err)
	}
	def, ok := v.(*domain.Definition)
	if !ok {
		return nil, fmt.Errorf("load %q: %w", name, domain.ErrWrongType)
	}
	return def, nil
}

// Remove deletes the value stored under name.
func (r *Registry) Remove(ctx context.Context, name string) error {
	if err := r.host.DeleteValue(ctx, name); err != nil {
		return storeErr(fmt.Sprintf("remove %q", name), err)
	}
	return nil
}
