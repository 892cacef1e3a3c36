package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	cacheName = "catalog"
	// lookupTimeout bounds a shared backend call, which no longer follows
	// any single caller's cancellation.
	lookupTimeout = 5 * time.Second
)

type cacheEntry struct {
	product   Product
	expiresAt time.Time
}

// CachedLookup fronts a Lookup with a bounded LRU. Concurrent misses for the
// same slug share one backend call. Not-found answers are never cached.
type CachedLookup struct {
	next    Lookup
	entries *lru.Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.CacheMetrics

	mu  sync.Mutex
	now func() time.Time
}

// NewCachedLookup wraps next with an LRU holding up to size products for ttl.
func NewCachedLookup(next Lookup, size int, ttl time.Duration, m *metrics.CacheMetrics) (*CachedLookup, error) {
	if next == nil {
		return nil, errors.New("backing lookup required")
	}
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedLookup{
		next:    next,
		entries: entries,
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
	}, nil
}

// FindProduct returns a copy of the cached product or loads it from the backing lookup.
func (c *CachedLookup) FindProduct(ctx context.Context, slug string) (*Product, error) {
	if product, ok := c.get(slug); ok {
		c.metrics.Hit(cacheName)
		return product, nil
	}
	c.metrics.Miss(cacheName)

	v, err, _ := c.group.Do(slug, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		product, err := c.next.FindProduct(loadCtx, slug)
		if err != nil {
			return nil, err
		}
		c.entries.Add(slug, cacheEntry{product: *product, expiresAt: c.clock().Add(c.ttl)})
		return *product, nil
	})
	if err != nil {
		return nil, err
	}
	product := cloneProduct(v.(Product))
	return &product, nil
}

func (c *CachedLookup) get(slug string) (*Product, bool) {
	raw, ok := c.entries.Get(slug)
	if !ok {
		return nil, false
	}
	entry := raw.(cacheEntry)
	if c.ttl > 0 && !c.clock().Before(entry.expiresAt) {
		c.entries.Remove(slug)
		return nil, false
	}
	product := cloneProduct(entry.product)
	return &product, true
}

func (c *CachedLookup) clock() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}

func (c *CachedLookup) setClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func cloneProduct(p Product) Product {
	p.Images = append([]string{}, p.Images...)
	return p
}
