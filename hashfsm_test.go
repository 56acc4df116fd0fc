package hashfsm_test

import (
	"context"
	"testing"

	"github.com/aretw0/hashfsm"
	"github.com/aretw0/hashfsm/internal/testutils"
	"github.com/aretw0/hashfsm/pkg/adapters/memory"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/engine"
	"github.com/aretw0/hashfsm/pkg/observability"
	"github.com/aretw0/hashfsm/pkg/registry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, opts ...hashfsm.Option) (*hashfsm.Module, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	host := memory.NewStore()
	m := hashfsm.New(host, opts...)

	sub, err := m.Observe(ctx, host)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return m, host
}

func TestModule_JobLifecycle(t *testing.T) {
	ctx := context.Background()
	m, host := setup(t)

	name, err := m.Create(ctx, []byte(testutils.JobFSMPayload))
	require.NoError(t, err)
	assert.Equal(t, "JobFSM", name)

	require.NoError(t, host.SetField(ctx, "job:42", "owner", "alice"))

	state, ok, err := m.State(ctx, "JobFSM", "job:42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sleeping", state)

	allowed, err := m.Allowed(ctx, "JobFSM", "job:42", "run")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = m.Allowed(ctx, "JobFSM", "job:42", "clean")
	require.NoError(t, err)
	assert.False(t, allowed)

	fired, err := m.Trigger(ctx, "JobFSM", "job:42", "run")
	require.NoError(t, err)
	assert.True(t, fired)

	events, err := m.Events(ctx, "JobFSM", "job:42")
	require.NoError(t, err)
	assert.Equal(t, []string{"clean", "sleep"}, events)

	fired, err = m.Trigger(ctx, "JobFSM", "job:42", "run")
	require.NoError(t, err)
	assert.False(t, fired, "run does not fire from running")

	owner, _, err := host.GetField(ctx, "job:42", "owner")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner, "other attributes are untouched")
}

func TestModule_UnknownDefinition(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	_, err := m.Allowed(ctx, "Nope", "job:1", "run")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = m.Trigger(ctx, "Nope", "job:1", "run")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = m.Info(ctx, "Nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = m.State(ctx, "Nope", "job:1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = m.Events(ctx, "Nope", "job:1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModule_Info(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)
	_, err := m.Create(ctx, []byte(testutils.JobFSMPayload))
	require.NoError(t, err)

	data, err := m.Info(ctx, "JobFSM")
	require.NoError(t, err)

	def, err := domain.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, testutils.JobFSM(), def)
}

func TestModule_CreateRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	m, host := setup(t)

	_, err := m.Create(ctx, []byte("name: X\nprefix: 'x:'\nfield: s\nstates: []\n"))
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Empty(t, host.Keys())
}

func TestModule_IndexKeyNameCannotBreakRegistry(t *testing.T) {
	ctx := context.Background()
	m, host := setup(t)

	_, err := m.Create(ctx, []byte("name: hashfsm.prefixes\nprefix: 'x:'\nfield: s\nstates: [a]\n"))
	assert.ErrorIs(t, err, domain.ErrDecode)

	_, err = m.Create(ctx, []byte(testutils.JobFSMPayload))
	require.NoError(t, err)

	require.NoError(t, host.SetField(ctx, "job:42", "owner", "alice"))
	state, ok, err := m.State(ctx, "JobFSM", "job:42")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sleeping", state)
}

func TestModule_DeleteStopsGoverning(t *testing.T) {
	ctx := context.Background()
	m, host := setup(t)
	_, err := m.Create(ctx, []byte(testutils.JobFSMPayload))
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "JobFSM"))

	bindings, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, bindings)

	require.NoError(t, host.SetField(ctx, "job:1", "owner", "alice"))
	_, ok, err := host.GetField(ctx, "job:1", "state")
	require.NoError(t, err)
	assert.False(t, ok, "deleted definitions no longer initialize entities")
}

func TestModule_RejectPolicy(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t, hashfsm.WithPrefixPolicy(registry.Reject))
	_, err := m.Create(ctx, []byte(testutils.JobFSMPayload))
	require.NoError(t, err)

	other := testutils.JobFSM()
	other.Name = "Other"
	assert.ErrorIs(t, m.CreateDefinition(ctx, other), domain.ErrPrefixTaken)
}

func TestModule_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics()
	m, host := setup(t, hashfsm.WithMetrics(metrics))

	_, err := m.Create(ctx, []byte(testutils.JobFSMPayload))
	require.NoError(t, err)
	require.NoError(t, host.SetField(ctx, "job:1", "owner", "alice"))
	_, err = m.Trigger(ctx, "JobFSM", "job:1", "run")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, "JobFSM"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Definitions.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Definitions.WithLabelValues("delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Initializations.WithLabelValues("JobFSM", observability.InitStamped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("JobFSM", "run", observability.TransitionApplied)))
}

func TestModule_WithStrategy(t *testing.T) {
	ctx := context.Background()
	host := memory.NewStore()
	m := hashfsm.New(host, hashfsm.WithStrategy(engine.CompareAndSwap{Store: host, Swapper: host}))
	assert.Equal(t, "cas", m.Engine().Strategy().Name())

	require.NoError(t, m.CreateDefinition(ctx, testutils.JobFSM()))
	require.NoError(t, host.SetField(ctx, "job:1", "state", "sleeping"))

	fired, err := m.Trigger(ctx, "JobFSM", "job:1", "run")
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestModule_LoadReportsBrokenDocuments(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	loader := memory.NewLoader(map[string]string{
		"job":    testutils.JobFSMPayload,
		"broken": "name: Broken\nprefix: nope\nfield: s\nstates: [a]\n",
	})

	created, err := m.Load(ctx, loader)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"JobFSM"}, created)
}
