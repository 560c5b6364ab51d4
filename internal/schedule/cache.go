package schedule

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// Cached memoizes lookups of a slower policy source, e.g. one backed by remote storage.
// Errors are not cached.
type Cached struct {
	source Source
	cache  *expirable.LRU[string, Policy]
}

func NewCached(source Source, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cached{
		source: source,
		cache:  expirable.NewLRU[string, Policy](defaultCacheSize, nil, ttl),
	}
}

func (c *Cached) Policy(ctx context.Context, scheduleID string) (Policy, error) {
	if p, ok := c.cache.Get(scheduleID); ok {
		return p, nil
	}
	p, err := c.source.Policy(ctx, scheduleID)
	if err != nil {
		return Policy{}, err
	}
	c.cache.Add(scheduleID, p)
	return p, nil
}

// Invalidate drops a cached policy so the next lookup hits the source.
func (c *Cached) Invalidate(scheduleID string) {
	c.cache.Remove(scheduleID)
}
