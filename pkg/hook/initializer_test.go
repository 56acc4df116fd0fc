package hook_test

import (
	"context"
	"testing"

	"github.com/aretw0/hashfsm/internal/testutils"
	"github.com/aretw0/hashfsm/pkg/adapters/memory"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/hook"
	"github.com/aretw0/hashfsm/pkg/observability"
	"github.com/aretw0/hashfsm/pkg/registry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store       *memory.Store
	reg         *registry.Registry
	initializer *hook.Initializer
	metrics     *observability.Metrics
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	reg := registry.New(store)
	metrics := observability.NewMetrics()
	initializer := hook.New(reg, store, hook.WithMetrics(metrics))

	sub, err := initializer.Attach(ctx, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	require.NoError(t, reg.Create(ctx, testutils.JobFSM()))
	return &fixture{store: store, reg: reg, initializer: initializer, metrics: metrics}
}

func (f *fixture) state(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := f.store.GetField(context.Background(), key, "state")
	require.NoError(t, err)
	return v, ok
}

func TestInitializer_StampsNewEntity(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.store.SetField(context.Background(), "job:1", "owner", "alice"))

	state, ok := f.state(t, "job:1")
	require.True(t, ok)
	assert.Equal(t, "sleeping", state)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Initializations.WithLabelValues("JobFSM", observability.InitStamped)))
}

func TestInitializer_KeepsExistingState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetField(ctx, "job:1", "state", "running"))
	state, _ := f.state(t, "job:1")
	assert.Equal(t, "running", state, "a state written by the caller is never replaced")

	require.NoError(t, f.store.SetField(ctx, "job:1", "owner", "bob"))
	state, _ = f.state(t, "job:1")
	assert.Equal(t, "running", state)
}

func TestInitializer_Idempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetField(ctx, "job:1", "owner", "alice"))
	n := domain.Notification{Kind: domain.KindHash, Event: domain.EventHSet, Key: "job:1"}
	f.initializer.Handle(ctx, n)
	f.initializer.Handle(ctx, n)

	state, _ := f.state(t, "job:1")
	assert.Equal(t, "sleeping", state)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Initializations.WithLabelValues("JobFSM", observability.InitStamped)))
}

func TestInitializer_IgnoresUngovernedKeys(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetField(ctx, "task:1", "owner", "alice"))
	require.NoError(t, f.store.SetField(ctx, "plain", "owner", "alice"))

	all, err := f.store.Fields(ctx, "task:1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "alice"}, all)

	all, err = f.store.Fields(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "alice"}, all)
}

func TestInitializer_IgnoresNonWrites(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, n := range []domain.Notification{
		{Kind: domain.KindHash, Event: domain.EventHDel, Key: "job:9"},
		{Kind: domain.KindGeneric, Event: domain.EventDel, Key: "job:9"},
		{Kind: domain.KindGeneric, Event: domain.EventExpired, Key: "job:9"},
		{Kind: domain.KindValue, Event: "set", Key: "job:9"},
	} {
		f.initializer.Handle(ctx, n)
	}

	assert.NotContains(t, f.store.Keys(), "job:9", "deleted entities are never resurrected")
}

func TestInitializer_MissingDefinition(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Index entry without a stored definition.
	require.NoError(t, f.store.SetField(ctx, domain.IndexKey, "ghost:", "GhostFSM"))

	assert.NotPanics(t, func() {
		require.NoError(t, f.store.SetField(ctx, "ghost:1", "owner", "alice"))
	})
	_, ok, err := f.store.GetField(ctx, "ghost:1", "state")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Initializations.WithLabelValues("GhostFSM", observability.InitFailed)))
}

func TestInitializer_FieldOnValueKey(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// A hash notification for a key that now holds a typed value: the read fails
	// and the hook gives up quietly.
	require.NoError(t, f.store.PutValue(ctx, "job:odd", registry.DefinitionType{}, testutils.JobFSM()))
	assert.NotPanics(t, func() {
		f.initializer.Handle(ctx, domain.Notification{Kind: domain.KindHash, Event: domain.EventHSet, Key: "job:odd"})
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Initializations.WithLabelValues("JobFSM", observability.InitFailed)))
}

func TestInitializer_StopsAfterClose(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	reg := registry.New(store)
	require.NoError(t, reg.Create(ctx, testutils.JobFSM()))

	sub, err := hook.New(reg, store).Attach(ctx, store)
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	require.NoError(t, store.SetField(ctx, "job:1", "owner", "alice"))
	_, ok, err := store.GetField(ctx, "job:1", "state")
	require.NoError(t, err)
	assert.False(t, ok)
}
