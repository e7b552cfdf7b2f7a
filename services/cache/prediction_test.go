package cachesvc

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/analytics"
	"github.com/trezcool/attendance/core/prediction"
)

// requires a running Redis, e.g. TEST_REDIS_ADDR=localhost:6379
func newTestCache(t *testing.T) *PredictionCache {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), core.RedisConfig{Addr: addr, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return NewPredictionCache(client, time.Minute)
}

func TestPredictionCache(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	date := core.NewDate(2024, time.March, 4)
	key := prediction.CacheKey("std-1", date)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache must miss")

	want := prediction.Prediction{
		StudentID:      "std-1",
		StudentName:    "Ada Lovelace",
		PredictionDate: date,
		Assessment:     analytics.HistoricalClassifier{}.Assess(analytics.Signal{AbsenceRate: 0.5}),
	}
	require.NoError(t, c.Set(ctx, key, want))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.StudentID, got.StudentID)
	assert.True(t, want.PredictionDate.Equal(got.PredictionDate))
	assert.Equal(t, want.Assessment, got.Assessment)

	ttl, err := c.client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl = %v", ttl)
}

func TestNewPredictionCacheDefaultTTL(t *testing.T) {
	c := NewPredictionCache(nil, 0)
	assert.Equal(t, DefaultPredictionTTL, c.ttl)
}
