package state

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb)
}

func TestRedisStoreGetAbsent(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Get(context.Background(), Key("telegram", "42"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreSetGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := Key("telegram", "42")

	require.NoError(t, store.Set(ctx, key, Menu))
	st, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Menu, st)

	// Last writer wins.
	require.NoError(t, store.Set(ctx, key, Cart))
	st, _, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, Cart, st)
}

func TestRedisStoreNamespacesIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Key("telegram", "42"), WaitingPayment))
	_, found, err := store.Get(ctx, Key("facebook", "42"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreMenuCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Menu(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	menu := []CachedProduct{{
		ID:             "p1",
		Name:           "Pepperoni",
		PriceMinor:     50000,
		PriceFormatted: "500 ₽",
		ImageURL:       "https://img.example/p1.jpg",
		CategoryIDs:    []string{"c1"},
	}}
	require.NoError(t, store.SetMenu(ctx, menu))

	got, found, err := store.Menu(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, menu, got)
}

func TestStateIsValid(t *testing.T) {
	for _, s := range []State{Start, Menu, ProductDetail, Cart, LocationRequest, DeliveryOptions, WaitingPayment, Finish} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, State("BROKEN").IsValid())
	assert.False(t, State("").IsValid())
}
