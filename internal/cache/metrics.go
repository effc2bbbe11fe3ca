package cache

import "github.com/prometheus/client_golang/prometheus"

// collector exports a cache's statistics snapshot as Prometheus metrics.
type collector struct {
	cache *Cache

	requestsDesc   *prometheus.Desc
	hitsDesc       *prometheus.Desc
	missesDesc     *prometheus.Desc
	evictionsDesc  *prometheus.Desc
	entriesDesc    *prometheus.Desc
	hitRateDesc    *prometheus.Desc
	lookupTimeDesc *prometheus.Desc
}

// NewCollector returns a prometheus.Collector reporting the statistics of c
// under the given metric namespace.
func NewCollector(c *Cache, namespace string) prometheus.Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "cache", n)
	}

	return &collector{
		cache: c,
		requestsDesc: prometheus.NewDesc(
			name("requests_total"),
			"Number of resolve requests served by the cache.",
			nil, nil,
		),
		hitsDesc: prometheus.NewDesc(
			name("hits_total"),
			"Number of requests answered from the cache.",
			nil, nil,
		),
		missesDesc: prometheus.NewDesc(
			name("misses_total"),
			"Number of requests that consulted the upstream resolver.",
			nil, nil,
		),
		evictionsDesc: prometheus.NewDesc(
			name("evictions_total"),
			"Number of entries evicted to respect the capacity.",
			nil, nil,
		),
		entriesDesc: prometheus.NewDesc(
			name("entries"),
			"Number of entries currently held.",
			nil, nil,
		),
		hitRateDesc: prometheus.NewDesc(
			name("hit_rate_percent"),
			"Hits as a percentage of requests.",
			nil, nil,
		),
		lookupTimeDesc: prometheus.NewDesc(
			name("lookup_seconds_total"),
			"Cumulative time spent resolving, upstream calls included.",
			nil, nil,
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (m *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.requestsDesc
	ch <- m.hitsDesc
	ch <- m.missesDesc
	ch <- m.evictionsDesc
	ch <- m.entriesDesc
	ch <- m.hitRateDesc
	ch <- m.lookupTimeDesc
}

// Collect is part of the prometheus.Collector interface.
func (m *collector) Collect(ch chan<- prometheus.Metric) {
	s := m.cache.Stats()

	ch <- prometheus.MustNewConstMetric(
		m.requestsDesc, prometheus.CounterValue, float64(s.Requests),
	)
	ch <- prometheus.MustNewConstMetric(
		m.hitsDesc, prometheus.CounterValue, float64(s.Hits),
	)
	ch <- prometheus.MustNewConstMetric(
		m.missesDesc, prometheus.CounterValue, float64(s.Misses),
	)
	ch <- prometheus.MustNewConstMetric(
		m.evictionsDesc, prometheus.CounterValue, float64(s.Evictions),
	)
	ch <- prometheus.MustNewConstMetric(
		m.entriesDesc, prometheus.GaugeValue, float64(s.Entries),
	)
	ch <- prometheus.MustNewConstMetric(
		m.hitRateDesc, prometheus.GaugeValue, s.HitRate,
	)
	ch <- prometheus.MustNewConstMetric(
		m.lookupTimeDesc, prometheus.CounterValue,
		s.TotalLookupTime.Seconds(),
	)
}
