package region

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	calls  int
	region string
	err    error
}

func (c *countingLookup) Region(ctx context.Context, country, postalCode string) (string, error) {
	c.calls++
	return c.region, c.err
}

func TestCachedLookup_Memory(t *testing.T) {
	next := &countingLookup{region: "Erzgebirgskreis"}
	lookup := NewCachedLookup(next, NewMemoryCache(), time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		region, err := lookup.Region(ctx, "DE", "09380")
		require.NoError(t, err)
		assert.Equal(t, "Erzgebirgskreis", region)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCachedLookup_CachesEmptyResult(t *testing.T) {
	next := &countingLookup{}
	lookup := NewCachedLookup(next, NewMemoryCache(), time.Hour)
	ctx := context.Background()

	lookup.Region(ctx, "DE", "99999")
	region, err := lookup.Region(ctx, "DE", "99999")
	require.NoError(t, err)
	assert.Equal(t, "", region)
	assert.Equal(t, 1, next.calls)
}

func TestCachedLookup_DoesNotCacheErrors(t *testing.T) {
	next := &countingLookup{err: errors.New("unavailable")}
	lookup := NewCachedLookup(next, NewMemoryCache(), time.Hour)
	ctx := context.Background()

	_, err := lookup.Region(ctx, "DE", "09557")
	assert.Error(t, err)
	_, err = lookup.Region(ctx, "DE", "09557")
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	v, ok, _ := cache.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(2 * time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := NewRedisCache(ctx, "redis://"+s.Addr())
	require.NoError(t, err)
	defer cache.Close()

	_, ok, err := cache.Get(ctx, "region:DE:09557")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "region:DE:09557", "Mittelsachsen", time.Hour))
	v, ok, err := cache.Get(ctx, "region:DE:09557")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Mittelsachsen", v)

	require.NoError(t, cache.Set(ctx, "region:DE:99999", "", time.Hour))
	v, ok, err = cache.Get(ctx, "region:DE:99999")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	s.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "region:DE:09557")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := NewRedisCache(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}
