package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"optiplus/internal/csvparse"
)

// DatasetCache keeps fully parsed datasets by ID. Datasets are immutable after upload,
// so entries only leave through TTL, eviction or an explicit delete.
// A nil *DatasetCache is valid and caches nothing.
type DatasetCache struct {
	lru    *expirable.LRU[string, *csvparse.Result]
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewDatasetCache creates an LRU cache with the given size and TTL. Counters are registered on reg
// when it is non-nil. A non-positive size disables caching and returns nil.
func NewDatasetCache(size int, ttl time.Duration, reg prometheus.Registerer) *DatasetCache {
	if size <= 0 {
		return nil
	}
	factory := promauto.With(reg)
	return &DatasetCache{
		lru: expirable.NewLRU[string, *csvparse.Result](size, nil, ttl),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_cache_hits_total",
			Help: "Parsed dataset cache hits.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_cache_misses_total",
			Help: "Parsed dataset cache misses.",
		}),
	}
}

func (c *DatasetCache) Get(id string) (*csvparse.Result, bool) {
	if c == nil {
		return nil, false
	}
	res, ok := c.lru.Get(id)
	if ok {
		c.hits.Inc()
		return res, true
	}
	c.misses.Inc()
	return nil, false
}

func (c *DatasetCache) Add(id string, res *csvparse.Result) {
	if c == nil {
		return
	}
	c.lru.Add(id, res)
}

func (c *DatasetCache) Remove(id string) {
	if c == nil {
		return
	}
	c.lru.Remove(id)
}

func (c *DatasetCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
