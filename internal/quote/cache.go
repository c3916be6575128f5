package quote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/discount-quote/internal/common"
	"github.com/noah-isme/discount-quote/internal/resilience"
)

const cacheKeyPrefix = "quote:"

// Cache stores computed quotes in Redis. A nil Cache or client disables caching.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *resilience.Breaker
}

// NewCache constructs a cache helper. A non-positive ttl disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// WithBreaker guards Redis calls so an unavailable cache is skipped instead of
// delaying every quote.
func (c *Cache) WithBreaker(b *resilience.Breaker) *Cache {
	c.breaker = b
	return c
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Key derives the cache key for a request. Quotes are pure, so equal inputs share a key.
func Key(req Request) string {
	parts := make([]string, 0, len(req.Discounts)+1)
	parts = append(parts, req.Price)
	parts = append(parts, req.Discounts...)
	return cacheKeyPrefix + common.HashParts(parts...)
}

// Get loads a cached quote. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, key string) (Quote, bool, error) {
	if !c.enabled() {
		return Quote{}, false, nil
	}
	var data []byte
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		return err
	}, healthyReply)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Quote{}, false, nil
		}
		return Quote{}, false, err
	}
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return Quote{}, false, err
	}
	return q, true, nil
}

// Set stores q under key with the configured TTL. The quote id is not cached.
func (c *Cache) Set(ctx context.Context, key string, q Quote) error {
	if !c.enabled() {
		return nil
	}
	q.ID = ""
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	}, nil)
}

// healthyReply treats a cache miss as a working dependency.
func healthyReply(err error) bool {
	return err == nil || errors.Is(err, redis.Nil)
}
