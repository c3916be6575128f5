package ratelimit

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const storePrefix = "ratelimit"

// NewLimiter builds a fixed-window limiter allowing max requests per window. It
// counts in Redis when client is non-nil and in process memory otherwise.
func NewLimiter(client *redis.Client, window time.Duration, max int) (*limiter.Limiter, error) {
	if window <= 0 || max <= 0 {
		return nil, fmt.Errorf("rate limit needs a positive window and max, got %s/%d", window, max)
	}
	opts := limiter.StoreOptions{Prefix: storePrefix, CleanUpInterval: limiter.DefaultCleanUpInterval}

	var store limiter.Store
	if client != nil {
		s, err := limiterredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("redis limiter store: %w", err)
		}
		store = s
	} else {
		store = memory.NewStoreWithOptions(opts)
	}
	return limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)}), nil
}
