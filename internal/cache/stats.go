package cache

import "time"

// counters are the running statistics of a cache. They are only touched
// while holding Cache.mu and only ever grow.
type counters struct {
	requests  uint64
	hits      uint64
	misses    uint64
	evictions uint64
	latency   time.Duration
}

// Stats is a point-in-time snapshot of the cache statistics.
type Stats struct {
	// Requests is the number of Resolve calls that reached the cache.
	Requests uint64

	// Hits and Misses partition Requests.
	Hits   uint64
	Misses uint64

	// Evictions counts entries dropped to make room for a new one.
	// Expired entries are not evictions.
	Evictions uint64

	// Entries is the number of entries physically held, expired ones not
	// yet discovered included.
	Entries int

	// TotalLookupTime is the cumulative time spent in Resolve, upstream
	// calls included.
	TotalLookupTime time.Duration

	// HitRate is Hits as a percentage of Requests, 0 with no requests.
	HitRate float64

	// AvgLookupTime is TotalLookupTime / Requests, 0 with no requests.
	AvgLookupTime time.Duration
}

// AvgLookupTimeMs returns the average lookup time in fractional
// milliseconds.
func (s Stats) AvgLookupTimeMs() float64 {
	if s.Requests == 0 {
		return 0
	}

	return float64(s.TotalLookupTime) / float64(time.Millisecond) /
		float64(s.Requests)
}

func (c *counters) snapshot(entries int) Stats {
	s := Stats{
		Requests:        c.requests,
		Hits:            c.hits,
		Misses:          c.misses,
		Evictions:       c.evictions,
		Entries:         entries,
		TotalLookupTime: c.latency,
	}

	if c.requests > 0 {
		s.HitRate = float64(c.hits) / float64(c.requests) * 100
		s.AvgLookupTime = c.latency / time.Duration(c.requests)
	}

	return s
}
