package registry

import (
	"fmt"

	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
)

// TypeName identifies stored Definitions in host headers and snapshots.
const TypeName = "hashfsm-definition"

// DefinitionType is the ports.ValueType of stored Definitions. Hosts call
// Encode and Decode on their write path and as snapshot save/load hooks, and
// Release when they reclaim a Definition.
type DefinitionType struct{}

var _ ports.ValueType = DefinitionType{}

func (DefinitionType) Name() string { return TypeName }

func (DefinitionType) Encode(v any) ([]byte, error) {
	d, ok := v.(*domain.Definition)
	if !ok {
		return nil, fmt.Errorf("%w: expected *domain.Definition, got %T", domain.ErrDecode, v)
	}
	return domain.Encode(d)
}

func (DefinitionType) Decode(data []byte) (any, error) {
	d, err := domain.Decode(data)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (DefinitionType) Release(v any) {
	if d, ok := v.(*domain.Definition); ok {
		d.Release()
	}
}
