package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/hashfsm"
	"github.com/aretw0/hashfsm/internal/testutils"
	"github.com/aretw0/hashfsm/pkg/adapters/redis"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/engine"
	"github.com/aretw0/hashfsm/pkg/ports"
	"github.com/aretw0/hashfsm/pkg/registry"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisHost_Contract(t *testing.T) {
	_, client := setupRedis(t)
	ports.RunHostContract(t, redis.NewFromClient(client))
}

func TestRedisHost_StoredValueCarriesTypeHeader(t *testing.T) {
	mr, client := setupRedis(t)
	host := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, host.PutValue(ctx, "JobFSM", registry.DefinitionType{}, testutils.JobFSM()))

	raw, err := mr.Get("JobFSM")
	require.NoError(t, err)
	assert.Regexp(t, `^hashfsm-definition\n\{`, raw)

	v, err := host.GetValue(ctx, "JobFSM", registry.DefinitionType{})
	require.NoError(t, err)
	assert.Equal(t, testutils.JobFSM(), v)
}

func TestRedisHost_ForeignString(t *testing.T) {
	mr, client := setupRedis(t)
	host := redis.NewFromClient(client)

	require.NoError(t, mr.Set("plain", "no header here"))

	_, err := host.GetValue(context.Background(), "plain", registry.DefinitionType{})
	assert.ErrorIs(t, err, domain.ErrWrongType)
}

func TestRedisHost_CorruptDefinition(t *testing.T) {
	mr, client := setupRedis(t)
	host := redis.NewFromClient(client)

	require.NoError(t, mr.Set("JobFSM", registry.TypeName+"\n{broken"))

	_, err := host.GetValue(context.Background(), "JobFSM", registry.DefinitionType{})
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestRedisHost_PutValueOnHash(t *testing.T) {
	mr, client := setupRedis(t)
	host := redis.NewFromClient(client)
	ctx := context.Background()

	mr.HSet("job:1", "state", "running")

	err := host.PutValue(ctx, "job:1", registry.DefinitionType{}, testutils.JobFSM())
	assert.ErrorIs(t, err, domain.ErrWrongType)
	assert.ErrorIs(t, host.DeleteValue(ctx, "job:1"), domain.ErrWrongType)
	assert.Equal(t, "running", mr.HGet("job:1", "state"), "the hash is left alone")
}

func TestRedisHost_CASStrategy(t *testing.T) {
	mr, client := setupRedis(t)
	host := redis.NewFromClient(client)
	ctx := context.Background()

	strategy, err := engine.NewStrategy("cas", host, nil)
	require.NoError(t, err)
	eng := engine.New(host, engine.WithStrategy(strategy))

	mr.HSet("job:1", "state", "sleeping")
	assert.True(t, eng.Trigger(ctx, testutils.JobFSM(), "job:1", "run"))
	assert.Equal(t, "running", mr.HGet("job:1", "state"))
	assert.False(t, eng.Trigger(ctx, testutils.JobFSM(), "job:1", "run"))
}

func TestRedisNotifier_InitializesEntities(t *testing.T) {
	_, client := setupRedis(t)
	host := redis.NewFromClient(client)
	ctx := context.Background()

	m := hashfsm.New(host)
	_, err := m.Create(ctx, []byte(testutils.JobFSMPayload))
	require.NoError(t, err)

	sub, err := m.Observe(ctx, redis.NewNotifier(client))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, host.SetField(ctx, "job:42", "owner", "alice"))
	// miniredis does not emit keyspace events: publish what Redis would.
	require.NoError(t, client.Publish(ctx, "__keyspace@0__:job:42", domain.EventHSet).Err())

	assert.Eventually(t, func() bool {
		state, ok, err := host.GetField(ctx, "job:42", "state")
		return err == nil && ok && state == "sleeping"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisNotifier_DeliversInOrder(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	got := make(chan domain.Notification, 8)
	sub, err := redis.NewNotifier(client).Subscribe(ctx, func(_ context.Context, n domain.Notification) {
		got <- n
	})
	require.NoError(t, err)

	for _, event := range []string{domain.EventHSet, domain.EventHDel, domain.EventDel} {
		require.NoError(t, client.Publish(ctx, "__keyspace@0__:job:7", event).Err())
	}

	want := []domain.Notification{
		{Kind: domain.KindHash, Event: domain.EventHSet, Key: "job:7"},
		{Kind: domain.KindHash, Event: domain.EventHDel, Key: "job:7"},
		{Kind: domain.KindGeneric, Event: domain.EventDel, Key: "job:7"},
	}
	for _, w := range want {
		select {
		case n := <-got:
			assert.Equal(t, w, n)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", w.Event)
		}
	}

	require.NoError(t, sub.Close())
	assert.NoError(t, sub.Close(), "closing twice is harmless")
}

func TestConnect(t *testing.T) {
	mr, _ := setupRedis(t)
	ctx := context.Background()

	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  "redis://" + mr.Addr() + "/0",
		RetryAttempts:  1,
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, redis.Healthcheck(client)(ctx))

	_, err = redis.Connect(ctx, redis.Config{ConnectionURL: "://bad"})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestConnect_NoWaitAfterLastAttempt(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://" + addr + "/0",
		RetryAttempts:  1,
		RetryInterval:  5 * time.Second,
		ConnectTimeout: 10 * time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	assert.Less(t, time.Since(start), 2*time.Second, "a single failed attempt returns without sleeping")
}
