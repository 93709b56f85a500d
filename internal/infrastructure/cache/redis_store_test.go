package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/template"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_SetGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	tplID := id.New()
	variants := []id.ID{id.New(), id.New()}
	require.NoError(t, store.Set(ctx, template.CacheKey, &template.Snapshot{
		TemplateID: &tplID,
		Name:       "weekly restock",
		VariantIDs: variants,
		Active:     true,
	}, time.Minute))

	assert.True(t, mr.Exists(DefaultKeyPrefix+template.CacheKey))

	snap, ok, err := store.Get(ctx, template.CacheKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tplID, *snap.TemplateID)
	assert.Equal(t, variants, snap.VariantIDs)
	assert.True(t, snap.Active)
}

func TestRedisStore_MissAndExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, template.CacheKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, template.CacheKey, &template.Snapshot{VariantIDs: []id.ID{}}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err = store.Get(ctx, template.CacheKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, template.CacheKey, &template.Snapshot{VariantIDs: []id.ID{}}, time.Minute))
	require.NoError(t, store.Delete(ctx, template.CacheKey))

	_, ok, err := store.Get(ctx, template.CacheKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, template.CacheKey))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, ok, err := store.Get(context.Background(), template.CacheKey)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, store.Ping(context.Background()))
}

func TestRedisStore_BacksTemplateCache(t *testing.T) {
	store, _ := newTestStore(t)
	provider := &countingProvider{snap: &template.Snapshot{VariantIDs: []id.ID{id.New()}, Active: true}}
	c := template.NewCache(provider, store, time.Minute)
	ctx := context.Background()

	_, err := c.GetOrRefresh(ctx)
	require.NoError(t, err)
	_, err = c.GetOrRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	require.NoError(t, c.Invalidate(ctx))
	_, err = c.GetOrRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

type countingProvider struct {
	snap  *template.Snapshot
	calls int
}

func (p *countingProvider) ActiveTemplate(context.Context) (*template.Snapshot, error) {
	p.calls++
	return p.snap, nil
}
