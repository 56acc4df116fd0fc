package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractType is a trivial ValueType used by the contract suite.
type contractType struct{ name string }

func (c contractType) Name() string { return c.name }

func (c contractType) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("contract type: expected string, got %T", v)
	}
	return []byte(s), nil
}

func (c contractType) Decode(data []byte) (any, error) { return string(data), nil }

func (c contractType) Release(any) {}

// RunHostContract runs a suite of tests to verify that a Host implementation
// adheres to the defined interface contract.
func RunHostContract(t *testing.T, host Host) {
	ctx := context.Background()
	run := time.Now().Format("20060102150405.000000000")
	key := func(name string) string { return "contract:" + run + ":" + name }
	vt := contractType{name: "contract-value"}

	t.Run("Field Set and Get", func(t *testing.T) {
		k := key("entity")

		_, ok, err := host.GetField(ctx, k, "state")
		require.NoError(t, err)
		assert.False(t, ok, "absent field should not be reported")

		require.NoError(t, host.SetField(ctx, k, "state", "idle"))

		v, ok, err := host.GetField(ctx, k, "state")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "idle", v)
	})

	t.Run("SetFieldIfAbsent", func(t *testing.T) {
		k := key("nx")

		set, err := host.SetFieldIfAbsent(ctx, k, "state", "first")
		require.NoError(t, err)
		assert.True(t, set)

		set, err = host.SetFieldIfAbsent(ctx, k, "state", "second")
		require.NoError(t, err)
		assert.False(t, set, "existing field must not be overwritten")

		v, _, err := host.GetField(ctx, k, "state")
		require.NoError(t, err)
		assert.Equal(t, "first", v)
	})

	t.Run("Fields and DeleteField", func(t *testing.T) {
		k := key("fields")
		require.NoError(t, host.SetField(ctx, k, "a", "1"))
		require.NoError(t, host.SetField(ctx, k, "b", "2"))

		all, err := host.Fields(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)

		require.NoError(t, host.DeleteField(ctx, k, "a"))
		require.NoError(t, host.DeleteField(ctx, k, "missing"))

		all, err = host.Fields(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"b": "2"}, all)

		empty, err := host.Fields(ctx, key("never-written"))
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("Value Put Get Delete", func(t *testing.T) {
		k := key("value")

		_, err := host.GetValue(ctx, k, vt)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, host.PutValue(ctx, k, vt, "payload-1"))
		require.NoError(t, host.PutValue(ctx, k, vt, "payload-2"))

		v, err := host.GetValue(ctx, k, vt)
		require.NoError(t, err)
		assert.Equal(t, "payload-2", v)

		require.NoError(t, host.DeleteValue(ctx, k))
		_, err = host.GetValue(ctx, k, vt)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Wrong Type", func(t *testing.T) {
		hashKey := key("wrong-hash")
		valueKey := key("wrong-value")
		require.NoError(t, host.SetField(ctx, hashKey, "f", "v"))
		require.NoError(t, host.PutValue(ctx, valueKey, vt, "payload"))

		_, err := host.GetValue(ctx, hashKey, vt)
		assert.ErrorIs(t, err, domain.ErrWrongType)
		assert.ErrorIs(t, err, domain.ErrNotFound, "wrong type is a not-found kind")

		_, _, err = host.GetField(ctx, valueKey, "f")
		assert.ErrorIs(t, err, domain.ErrWrongType)

		_, err = host.GetValue(ctx, valueKey, contractType{name: "another-type"})
		assert.ErrorIs(t, err, domain.ErrWrongType)
	})

	swapper, ok := host.(FieldSwapper)
	if !ok {
		return
	}

	t.Run("SwapField", func(t *testing.T) {
		k := key("swap")
		require.NoError(t, host.SetField(ctx, k, "state", "idle"))

		swapped, err := swapper.SwapField(ctx, k, "state", "running", "done")
		require.NoError(t, err)
		assert.False(t, swapped, "swap must fail when the current value differs")

		swapped, err = swapper.SwapField(ctx, k, "state", "idle", "running")
		require.NoError(t, err)
		assert.True(t, swapped)

		v, _, err := host.GetField(ctx, k, "state")
		require.NoError(t, err)
		assert.Equal(t, "running", v)

		swapped, err = swapper.SwapField(ctx, key("swap-missing"), "state", "idle", "running")
		require.NoError(t, err)
		assert.False(t, swapped, "swap on an absent field must fail")
	})
}

// RunDefinitionLoaderContract verifies that a DefinitionLoader lists every
// expected ID and serves payloads that parse into the expected Definitions.
func RunDefinitionLoaderContract(t *testing.T, loader DefinitionLoader, expected map[string]*domain.Definition) {
	ctx := context.Background()

	t.Run("ListDefinitions", func(t *testing.T) {
		ids, err := loader.ListDefinitions(ctx)
		require.NoError(t, err)
		for id := range expected {
			assert.Contains(t, ids, id)
		}
	})

	t.Run("GetDefinition", func(t *testing.T) {
		for id, want := range expected {
			payload, err := loader.GetDefinition(ctx, id)
			require.NoError(t, err, id)

			got, err := domain.ParsePayload(payload)
			require.NoError(t, err, id)
			assert.Equal(t, want, got, id)
		}
	})

	t.Run("GetDefinition Missing", func(t *testing.T) {
		_, err := loader.GetDefinition(ctx, "definitely-missing-definition")
		assert.Error(t, err)
	})
}
