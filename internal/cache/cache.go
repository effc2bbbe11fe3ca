package cache

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"golang.org/x/sync/singleflight"
)

// Cache is a concurrency-safe, capacity-bounded lookup cache with a fixed
// per-entry TTL and LRU eviction, backed by an upstream Resolver.
//
// A single mutex guards the entry store, the recency list and the
// statistics. Unless CoalesceMisses is set, Resolve holds it for its whole
// body, upstream call included, so a slow resolver is felt by every caller.
//
// Ownership model:
// Cache owns its sweeper goroutine. Call Close to stop it.
type Cache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	resolver Resolver
	clock    clock.Clock
	coalesce bool

	store *store
	stats counters

	// inflight dedups concurrent upstream calls in coalescing mode.
	inflight singleflight.Group

	// Goroutine ownership.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sweepTicker ticker.Ticker
	closed      bool
}

// New constructs a cache and starts its background sweeper.
//
// New fails with a *ConfigError if cfg is invalid, in which case nothing is
// started.
func New(cfg Config) (*Cache, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache{
		capacity:    cfg.Capacity,
		ttl:         cfg.TTL,
		resolver:    cfg.Resolver,
		clock:       cfg.Clock,
		coalesce:    cfg.CoalesceMisses,
		store:       newStore(cfg.Capacity),
		ctx:         ctx,
		cancel:      cancel,
		sweepTicker: cfg.SweepTicker,
	}

	c.wg.Add(1)
	go c.sweepLoop()

	log.Debugf("Cache started: capacity=%d ttl=%v sweep=%v coalesce=%v",
		cfg.Capacity, cfg.TTL, cfg.SweepInterval, cfg.CoalesceMisses)

	return c, nil
}

// Close stops the sweeper and makes further Resolve calls fail with
// ErrClosed.
//
// Close is safe to call multiple times.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	// Cancel outside the lock; the sweeper may be waiting for it.
	cancel()
	c.wg.Wait()

	log.Debugf("Cache stopped")

	return nil
}

// Resolve returns the current value for key.
//
// A live cached entry is returned and promoted to most recently used. An
// absent or expired key is a miss: the upstream resolver is queried, the
// least recently used entry is evicted if the cache is full, and the fresh
// value is inserted with the configured TTL.
//
// A failing resolver yields a *ResolutionError and leaves the cached entries
// untouched.
func (c *Cache) Resolve(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	if c.coalesce {
		return c.resolveCoalesced(key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}

	start := c.clock.Now()
	c.stats.requests++
	defer func() {
		c.stats.latency += c.clock.Now().Sub(start)
	}()

	if value, ok := c.hitLocked(key, start); ok {
		return value, nil
	}

	c.stats.misses++

	value, err := c.resolver.ResolveUpstream(key)
	if err != nil {
		log.Debugf("Upstream resolution of %q failed: %v", key, err)
		return "", &ResolutionError{Key: key, Err: err}
	}

	c.insertLocked(key, value)

	return value, nil
}

// Stats returns a consistent snapshot of the cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats.snapshot(c.store.len())
}

// Len returns the number of currently stored entries.
//
// Note: Len includes entries that have expired but haven't been discovered
// or swept yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.len()
}

// Keys returns keys in MRU -> LRU order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.keys()
}

// hitLocked serves key from the store if it holds a live entry, promoting it
// and counting the hit. An expired entry is removed on the way. The caller
// must hold c.mu.
func (c *Cache) hitLocked(key string, now time.Time) (string, bool) {
	idx, ok := c.store.lookup(key)
	if !ok {
		return "", false
	}

	e := c.store.at(idx)
	if e.expired(now) {
		log.Tracef("Entry %q expired at %v", key, e.expiresAt)
		c.store.remove(idx)

		return "", false
	}

	c.store.promote(idx)
	c.stats.hits++

	return e.value, true
}

// insertLocked stores a freshly resolved value, evicting the least recently
// used entry first if the cache is full. The caller must hold c.mu.
func (c *Cache) insertLocked(key, value string) {
	// Only reachable in coalescing mode, where another caller may have
	// inserted key while the lock was released.
	if idx, ok := c.store.lookup(key); ok {
		c.store.remove(idx)
	}

	if c.store.len() >= c.capacity {
		if victim, ok := c.store.evictTail(); ok {
			c.stats.evictions++
			log.Tracef("Evicted %q to make room for %q",
				victim.key, key)
		}
	}

	c.store.insert(key, value, c.clock.Now().Add(c.ttl))
}
