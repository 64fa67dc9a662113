// Package discovery caches generated Prometheus file-SD target lists in Redis
// so repeated discovery runs within the TTL skip regeneration.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/store"
	"github.com/Andylive5518/cctv-allin/internal/targets"
)

// Target categories, each cached under its own key.
const (
	CategoryBlackbox = "blackbox"
	CategorySNMP     = "snmp"
)

// DefaultTTL is used when the cache is constructed with a non-positive TTL.
const DefaultTTL = 300 * time.Second

const keyPrefix = "discovery:"

// Key returns the Redis key for a category.
func Key(category string) string {
	return keyPrefix + category
}

// GenerateFunc produces a fresh target list for a cache miss.
type GenerateFunc func() []targets.StaticConfig

// Cache is a read-through cache in front of target generation. Redis is
// never a correctness dependency: every backend failure degrades to a
// fresh generation.
type Cache struct {
	kv      store.KV
	ttl     time.Duration
	refresh bool
	logger  *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithRefresh drops the cached entry before generating; fresh results are
// still written back.
func WithRefresh(refresh bool) Option {
	return func(c *Cache) { c.refresh = refresh }
}

// NewCache returns a cache over kv. A nil kv disables caching.
func NewCache(kv store.KV, ttl time.Duration, logger *zap.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{kv: kv, ttl: ttl, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Targets returns the cached list for category, or generates, stores and
// returns a fresh one.
func (c *Cache) Targets(ctx context.Context, category string, generate GenerateFunc) []targets.StaticConfig {
	if c == nil || c.kv == nil {
		return generate()
	}
	key := Key(category)

	if c.refresh {
		if err := c.Invalidate(ctx, category); err != nil {
			c.logger.Warn("discovery cache invalidate failed", zap.String("key", key), zap.Error(err))
		}
	} else {
		cached, err := c.lookup(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug("discovery cache hit", zap.String("key", key), zap.Int("targets", len(cached)))
			return cached
		case errors.Is(err, store.ErrCacheMiss):
			c.logger.Debug("discovery cache miss", zap.String("key", key))
		default:
			c.logger.Warn("discovery cache read failed, regenerating", zap.String("key", key), zap.Error(err))
		}
	}

	fresh := generate()
	if err := c.store(ctx, key, fresh); err != nil {
		c.logger.Warn("discovery cache write failed", zap.String("key", key), zap.Error(err))
	}
	return fresh
}

// Invalidate removes the cached entry for category.
func (c *Cache) Invalidate(ctx context.Context, category string) error {
	if c == nil || c.kv == nil {
		return nil
	}
	return c.kv.Del(ctx, Key(category))
}

func (c *Cache) lookup(ctx context.Context, key string) ([]targets.StaticConfig, error) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var out []targets.StaticConfig
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", key, err)
	}
	if out == nil {
		out = []targets.StaticConfig{}
	}
	return out, nil
}

func (c *Cache) store(ctx context.Context, key string, list []targets.StaticConfig) error {
	if list == nil {
		list = []targets.StaticConfig{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.kv.Set(ctx, key, string(data), c.ttl)
}
