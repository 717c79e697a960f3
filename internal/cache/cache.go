// Package cache keeps recent eligibility results in Redis. Every method is a
// no-op when no client is configured, and Redis errors are treated as misses.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/models"
)

// DefaultTTL is how long an eligibility result stays cached.
const DefaultTTL = 10 * time.Minute

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// New returns a cache; client may be nil.
func New(client *redis.Client, ttl time.Duration, log *logrus.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

// Connect opens a Redis client for addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opt, err := redis.ParseURL(fmt.Sprintf("redis://%s", addr))
	if err != nil {
		opt = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func eligibilityKey(userID int64) string {
	return fmt.Sprintf("eligibility:%d", userID)
}

// GetEligibility returns the cached result for a user, if any.
func (c *Cache) GetEligibility(ctx context.Context, userID int64) (*models.EligibilityResult, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, eligibilityKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("Eligibility cache read failed for user %d: %v", userID, err)
		}
		return nil, false
	}
	var res models.EligibilityResult
	if err := json.Unmarshal(raw, &res); err != nil {
		c.log.Warnf("Discarding corrupt eligibility cache entry for user %d: %v", userID, err)
		return nil, false
	}
	return &res, true
}

// SetEligibility stores a result for a user.
func (c *Cache) SetEligibility(ctx context.Context, userID int64, res models.EligibilityResult) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.SetEx(ctx, eligibilityKey(userID), data, c.ttl).Err(); err != nil {
		c.log.Warnf("Eligibility cache write failed for user %d: %v", userID, err)
	}
}

// InvalidateEligibility drops the cached result for a user.
func (c *Cache) InvalidateEligibility(ctx context.Context, userID int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, eligibilityKey(userID)).Err(); err != nil {
		c.log.Warnf("Eligibility cache invalidation failed for user %d: %v", userID, err)
	}
}
