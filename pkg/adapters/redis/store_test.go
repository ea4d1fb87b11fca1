package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newTestClient(t)
	ports.RunStateStoreContract(t, NewFromClient(client))
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewFromClient(client, WithTTL(time.Second), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewState("s1", "start", nil)))
	assert.True(t, mr.Exists("test:s1"))
	assert.Equal(t, time.Second, mr.TTL("test:s1"))

	mr.FastForward(2 * time.Second)

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_ListPrunesExpired(t *testing.T) {
	_, client := newTestClient(t)
	clock := time.Unix(1_700_000_000, 0)
	store := NewFromClient(client, WithTTL(time.Minute))
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old", domain.NewState("old", "start", nil)))
	clock = clock.Add(30 * time.Second)
	require.NoError(t, store.Save(ctx, "new", domain.NewState("new", "start", nil)))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids)

	clock = clock.Add(45 * time.Second)
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids)
}

func TestRedisStore_NoTTLNeverPruned(t *testing.T) {
	_, client := newTestClient(t)
	store := NewFromClient(client)
	store.now = func() time.Time { return time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "forever", domain.NewState("forever", "start", nil)))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"forever"}, ids)
}
