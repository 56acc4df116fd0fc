package ports

import "context"

// HashStore is the field-level access the engine needs on hash entities.
type HashStore interface {
	// GetField reads one attribute. ok is false when the key or the field is absent.
	// Returns domain.ErrWrongType if key holds something other than a hash.
	GetField(ctx context.Context, key, field string) (value string, ok bool, err error)

	// SetField writes one attribute, creating the hash if needed.
	SetField(ctx context.Context, key, field, value string) error

	// SetFieldIfAbsent writes the attribute only if it does not exist yet.
	// It reports whether the write happened.
	SetFieldIfAbsent(ctx context.Context, key, field, value string) (bool, error)

	// DeleteField removes one attribute. Removing a missing field is not an error.
	DeleteField(ctx context.Context, key, field string) error

	// Fields returns every attribute of the hash (empty if the key is absent).
	Fields(ctx context.Context, key string) (map[string]string, error)
}

// FieldSwapper is implemented by hosts able to write a field conditionally.
type FieldSwapper interface {
	// SwapField sets field to next only if it currently holds prev.
	// It reports whether the swap happened.
	SwapField(ctx context.Context, key, field, prev, next string) (bool, error)
}
