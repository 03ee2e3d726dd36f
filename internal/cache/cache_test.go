package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateSentinel/internal/metrics"
	"RateSentinel/internal/model"
)

func sample() model.RateSnapshot {
	return model.RateSnapshot{
		Currency:  model.USD,
		Buy:       decimal.RequireFromString("41.25"),
		Sell:      decimal.RequireFromString("41.75"),
		Timestamp: time.Date(2024, 12, 7, 9, 0, 0, 0, time.UTC),
	}
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	m := metrics.Nop()
	calls := 0
	compute := func(context.Context) (model.RateSnapshot, error) {
		calls++
		return sample(), nil
	}

	first, err := GetOrCompute(ctx, c, m, Latest, model.USD, compute)
	require.NoError(t, err)
	second, err := GetOrCompute(ctx, c, m, Latest, model.USD, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, second.Buy.Equal(first.Buy))
	assert.True(t, second.Timestamp.Equal(first.Timestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("latest", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("latest", "hit")))
}

func TestGetOrCompute_NamespacesAreIndependent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := GetOrCompute(ctx, c, nil, Latest, model.USD, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	v, err := GetOrCompute(ctx, c, nil, Hourly, model.USD, func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = GetOrCompute(ctx, c, nil, Latest, model.EUR, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 3, c.Len())
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	boom := errors.New("not found")

	_, err := GetOrCompute(ctx, c, nil, Daily, model.EUR, func(context.Context) ([]int, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	got, err := GetOrCompute(ctx, c, nil, Daily, model.EUR, func(context.Context) ([]int, error) { return []int{1}, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	calls := 0
	compute := func(context.Context) (int, error) { calls++; return calls, nil }

	_, _ = GetOrCompute(ctx, c, nil, Latest, model.USD, compute)
	_, _ = GetOrCompute(ctx, c, nil, Daily, model.USD, compute)
	require.NoError(t, c.InvalidateAll(ctx))
	assert.Equal(t, 0, c.Len())

	v, err := GetOrCompute(ctx, c, nil, Latest, model.USD, compute)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, Namespace, model.Currency) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, Namespace, model.Currency, []byte) error {
	return errors.New("connection refused")
}
func (brokenCache) InvalidateAll(context.Context) error { return errors.New("connection refused") }

func TestGetOrCompute_DegradesOnCacheFailure(t *testing.T) {
	m := metrics.Nop()
	v, err := GetOrCompute(context.Background(), brokenCache{}, m, Hourly, model.USD,
		func(context.Context) (string, error) { return "computed", nil })
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hourly", "error")))
}

func TestGetOrCompute_CorruptEntryRecomputes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, Latest, model.USD, []byte("{not json")))

	v, err := GetOrCompute(ctx, c, nil, Latest, model.USD, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	raw, ok, _ := c.Get(ctx, Latest, model.USD)
	require.True(t, ok)
	assert.Equal(t, "7", string(raw))
}

func TestRedisCache_UnreachableDegrades(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewRedisCacheFromClient(client, "", 0)

	_, _, err := c.Get(context.Background(), Latest, model.USD)
	assert.Error(t, err)

	v, err := GetOrCompute(context.Background(), c, nil, Latest, model.USD,
		func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestRedisCache_KeyLayout(t *testing.T) {
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{}), "", time.Hour)
	assert.Equal(t, "ratesentinel:daily:EUR", c.redisKey(Daily, model.EUR))

	custom := NewRedisCacheFromClient(redis.NewClient(&redis.Options{}), "test:", 0)
	assert.Equal(t, "test:latest:USD", custom.redisKey(Latest, model.USD))
}
