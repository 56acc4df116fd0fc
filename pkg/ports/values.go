package ports

import "context"

// ValueType describes an opaque custom value the host stores on behalf of
// the engine. The host owns a stored value exclusively until it is replaced
// or deleted, at which point it calls Release.
//
// Encode and Decode must be pure and form a byte-exact round trip; hosts use
// them for their write path and as the save/load hooks of their snapshots.
type ValueType interface {
	// Name identifies the type in stored headers and snapshots.
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
	Release(v any)
}

// ValueStore holds typed values under plain keys.
type ValueStore interface {
	// PutValue stores v under key, replacing (and releasing) any prior value.
	PutValue(ctx context.Context, key string, vt ValueType, v any) error

	// GetValue returns a value the caller owns.
	// Returns domain.ErrNotFound if absent and domain.ErrWrongType if key holds
	// a hash or a value of another type.
	GetValue(ctx context.Context, key string, vt ValueType) (any, error)

	// DeleteValue removes (and releases) the value under key.
	DeleteValue(ctx context.Context, key string) error
}

// Host is the full external collaborator: hash entities plus typed values.
type Host interface {
	HashStore
	ValueStore
}
