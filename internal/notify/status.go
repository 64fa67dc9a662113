package notify

import (
	"context"
	"time"

	"github.com/Andylive5518/cctv-allin/internal/store"
)

// DefaultStatusTTL is how long a device's last alert status is kept.
const DefaultStatusTTL = 30 * time.Second

const statusKeyPrefix = "device_status:"

// StatusCache records the last alert status seen per instance.
type StatusCache struct {
	kv  store.KV
	ttl time.Duration
}

// NewStatusCache creates a status cache backed by kv.
func NewStatusCache(kv store.KV, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusCache{kv: kv, ttl: ttl}
}

// Record stores status for instance.
func (c *StatusCache) Record(ctx context.Context, instance, status string) error {
	return c.kv.Set(ctx, statusKeyPrefix+instance, status, c.ttl)
}

// Lookup returns the cached status; store.ErrCacheMiss when absent.
func (c *StatusCache) Lookup(ctx context.Context, instance string) (string, error) {
	return c.kv.Get(ctx, statusKeyPrefix+instance)
}
