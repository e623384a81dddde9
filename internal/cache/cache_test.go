package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_FetchesOnceThenHits(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{Name: "Muzika", Count: 3}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "test", "thing", &first, time.Minute, fetch(&first)))
	var second cachedThing
	require.NoError(t, Aside(ctx, "test", "thing", &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestAside_WithoutRedisAlwaysFetches(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest cachedThing
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "test", "thing", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_PropagatesFetchError(t *testing.T) {
	useMiniredis(t)
	boom := errors.New("db down")
	var dest cachedThing
	err := Aside(context.Background(), "test", "thing", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestAside_RedisDownFallsBackToFetch(t *testing.T) {
	mr := useMiniredis(t)
	mr.Close()

	calls := 0
	var dest cachedThing
	err := Aside(context.Background(), "test", "thing", &dest, time.Minute, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestInvalidateCategories(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, CategoryListKey, []cachedThing{{Name: "Menas"}}, time.Minute))
	require.True(t, mr.Exists(CategoryListKey))

	InvalidateCategories(ctx)
	assert.False(t, mr.Exists(CategoryListKey))
}

func TestInvalidateAllIdentities(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	for id := uint(1); id <= 450; id++ {
		require.NoError(t, SetJSON(ctx, IdentityKey(id), cachedThing{Count: int(id)}, time.Minute))
	}
	require.NoError(t, SetJSON(ctx, CategoryListKey, []cachedThing{}, time.Minute))

	require.NoError(t, InvalidateAllIdentities(ctx))
	assert.False(t, mr.Exists(IdentityKey(1)))
	assert.False(t, mr.Exists(IdentityKey(450)))
	assert.True(t, mr.Exists(CategoryListKey))
}

func TestInvalidateAllIdentities_WithoutRedis(t *testing.T) {
	SetClient(nil)
	assert.NoError(t, InvalidateAllIdentities(context.Background()))
}

func TestRevokeToken(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	require.NoError(t, RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err := IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.TTL(BlacklistKey("jti-1")) > 0)

	revoked, err = IsTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeToken(ctx, "jti-old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(BlacklistKey("jti-old")))
}
