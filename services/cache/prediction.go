// Package cachesvc stores computed values in Redis.
package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/prediction"
)

const DefaultPredictionTTL = time.Hour

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// PredictionCache is a prediction.Cache backed by Redis, entries expire after ttl.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ prediction.Cache = (*PredictionCache)(nil)

func NewPredictionCache(client *redis.Client, ttl time.Duration) *PredictionCache {
	if ttl <= 0 {
		ttl = DefaultPredictionTTL
	}
	return &PredictionCache{client: client, ttl: ttl}
}

func (c *PredictionCache) Get(ctx context.Context, key string) (prediction.Prediction, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return prediction.Prediction{}, false, nil
		}
		return prediction.Prediction{}, false, errors.Wrap(err, "getting cached prediction")
	}
	var p prediction.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		// drop entries written by an incompatible version
		_ = c.client.Del(ctx, key).Err()
		return prediction.Prediction{}, false, nil
	}
	return p, true, nil
}

func (c *PredictionCache) Set(ctx context.Context, key string, p prediction.Prediction) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding prediction")
	}
	return errors.Wrap(c.client.Set(ctx, key, data, c.ttl).Err(), "caching prediction")
}
