package cache

// sweepLoop periodically removes expired entries.
//
// Lazy expiry alone can leave dead entries in memory indefinitely when keys
// are resolved once and never again. The sweep walks the whole recency list
// under the cache lock, so it is O(n) and blocks Resolve while it runs.
func (c *Cache) sweepLoop() {
	defer c.wg.Done()

	c.sweepTicker.Resume()
	defer c.sweepTicker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case <-c.sweepTicker.Ticks():
			c.sweep()
		}
	}
}

// sweep removes every entry whose deadline has passed and returns how many
// were removed. It never calls upstream and never touches the statistics.
func (c *Cache) sweep() int {
	c.mu.Lock()
	removed := c.store.removeExpired(c.clock.Now())
	remaining := c.store.len()
	c.mu.Unlock()

	if removed > 0 {
		log.Debugf("Swept %d expired entries, %d remaining", removed,
			remaining)
	}

	return removed
}
