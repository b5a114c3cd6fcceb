package shortener

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"techflow-engine/internal/logger"
)

const keyPrefix = "shortlink:"

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Cached fronts a gateway with a Redis lookup so a link is only shortened
// once per TTL across runs and processes. Cache errors fall through to the
// wrapped gateway.
type Cached struct {
	next Gateway
	rdb  redis.UniversalClient
	ttl  time.Duration
	log  logger.Logger
}

func NewCached(next Gateway, rdb redis.UniversalClient, ttl time.Duration, log logger.Logger) *Cached {
	if log == nil {
		log = logger.NewNop()
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, log: logger.Component(log, "shortener")}
}

func cacheKey(link string) string {
	sum := sha256.Sum256([]byte(link))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *Cached) Shorten(ctx context.Context, link string) (string, error) {
	key := cacheKey(link)

	short, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && short != "":
		return short, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.log.Warn("short link cache read failed", logger.Error(err))
	}

	short, err = c.next.Shorten(ctx, link)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, short, c.ttl).Err(); err != nil {
		c.log.Warn("short link cache write failed", logger.Error(err))
	}
	return short, nil
}
