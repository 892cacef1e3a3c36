package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics counts lookups served from an in-process cache.
type CacheMetrics struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

// NewCacheMetrics registers the cache counters on the provided registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Cache lookups answered without touching the backing store.",
	}, []string{"cache"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Cache lookups that fell through to the backing store.",
	}, []string{"cache"})
	reg.MustRegister(hits, misses)
	return &CacheMetrics{hits: hits, misses: misses}
}

// Hit increments the hit counter for the named cache.
func (c *CacheMetrics) Hit(cache string) {
	if c == nil || c.hits == nil {
		return
	}
	c.hits.WithLabelValues(normalizeLabel(cache)).Inc()
}

// Miss increments the miss counter for the named cache.
func (c *CacheMetrics) Miss(cache string) {
	if c == nil || c.misses == nil {
		return
	}
	c.misses.WithLabelValues(normalizeLabel(cache)).Inc()
}
