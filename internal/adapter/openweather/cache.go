package openweather

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedFetcher wraps a ForecastFetcher with an in-memory LRU cache whose
// entries expire after a fixed TTL.
type CachedFetcher struct {
	inner   domain.ForecastFetcher
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher. A nil clock
// uses real time.
func NewCachedFetcher(inner domain.ForecastFetcher, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedFetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchForecast(ctx context.Context, city string) ([]byte, error) {
	now := c.clock.Now()
	if body, expires, ok := c.cache.get(city); ok {
		if now.Before(expires) {
			c.metrics.ForecastCache.WithLabelValues("hit").Inc()
			return body, nil
		}
		c.cache.delete(city)
		c.metrics.ForecastCache.WithLabelValues("expired").Inc()
	} else {
		c.metrics.ForecastCache.WithLabelValues("miss").Inc()
	}

	body, err := c.inner.FetchForecast(ctx, city)
	if err != nil {
		return nil, err
	}
	c.cache.put(city, body, now.Add(c.ttl))
	return body, nil
}

// lruCache is a simple thread-safe LRU cache of forecast bodies.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   []byte
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	c.moveToFront(e)
	return e.value, e.expires, true
}

func (c *lruCache) put(key string, value []byte, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
