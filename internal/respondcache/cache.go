// Package respondcache caches generated responses in Redis, keyed by the
// normalized input line. Within the TTL a repeated line gets the same reply
// without spending random draws; learning invalidates the cache because the
// corpus behind every cached reply has changed.
package respondcache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/chatborg/chatborg/internal/tokenizer"
	"github.com/chatborg/chatborg/pkg/config"
	pkgredis "github.com/chatborg/chatborg/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "respond:"

// CachedResponse is the stored outcome of one respond call. Responded is
// kept so that "nothing to say" is cached too.
type CachedResponse struct {
	Response  string `json:"response"`
	Responded bool   `json:"responded"`
}

// Cache is a Redis-backed response cache with singleflight collapse of
// concurrent identical lines.
type Cache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache over the given Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *Cache {
	return &Cache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "respond-cache"),
	}
}

// Get returns the cached outcome for line, if present.
func (c *Cache) Get(ctx context.Context, line string) (*CachedResponse, bool) {
	key := c.buildKey(line)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.misses.Add(1)
			return nil, false
		}
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	var cached CachedResponse
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &cached, true
}

// Set stores the outcome for line with the configured TTL.
func (c *Cache) Set(ctx context.Context, line string, cached *CachedResponse) {
	key := c.buildKey(line)
	data, err := json.Marshal(cached)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached outcome for line, computing and storing it
// on a miss. Concurrent identical lines share a single computation.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	line string,
	computeFn func() (*CachedResponse, error),
) (*CachedResponse, bool, error) {
	if cached, ok := c.Get(ctx, line); ok {
		return cached, true, nil
	}
	key := c.buildKey(line)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if cached, ok := c.Get(ctx, line); ok {
			return cached, nil
		}
		cached, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, line, cached)
		return cached, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*CachedResponse), false, nil
}

// Invalidate drops every cached response. Called after the corpus changes.
func (c *Cache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating response cache: %w", err)
	}
	c.logger.Info("response cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) buildKey(line string) string {
	normalized := NormalizeLine(line)
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// NormalizeLine reduces a chat line to its lowercase word sequence, so that
// punctuation and spacing variants share a cache entry.
func NormalizeLine(line string) string {
	return strings.Join(tokenizer.SplitWords(strings.ToLower(line)), " ")
}
