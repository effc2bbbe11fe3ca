package cache

// resolveCoalesced is the miss path used when CoalesceMisses is set.
//
// The hit check and counters run under c.mu exactly as in the default path.
// On a miss the lock is dropped before calling upstream, and concurrent
// misses for the same key join a single in-flight call. Only the caller that
// ran the upstream call inserts the result, after re-acquiring the lock.
func (c *Cache) resolveCoalesced(key string) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}

	start := c.clock.Now()
	c.stats.requests++

	if value, ok := c.hitLocked(key, start); ok {
		c.stats.latency += c.clock.Now().Sub(start)
		c.mu.Unlock()

		return value, nil
	}

	c.stats.misses++
	c.mu.Unlock()

	v, err, shared := c.inflight.Do(key, func() (interface{}, error) {
		value, err := c.resolver.ResolveUpstream(key)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		// A cache closed mid-flight still answers the callers that
		// were already waiting, it just stops storing.
		if !c.closed {
			c.insertLocked(key, value)
		}

		return value, nil
	})
	if shared {
		log.Tracef("Joined in-flight upstream call for %q", key)
	}

	c.mu.Lock()
	c.stats.latency += c.clock.Now().Sub(start)
	c.mu.Unlock()

	if err != nil {
		log.Debugf("Upstream resolution of %q failed: %v", key, err)
		return "", &ResolutionError{Key: key, Err: err}
	}

	return v.(string), nil
}
