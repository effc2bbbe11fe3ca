package server

import "resolvecache/internal/cache"

// ResolveResponse is the body of a successful GET /v1/resolve/{key}.
type ResolveResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	Requests        uint64  `json:"requests"`
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	Evictions       uint64  `json:"evictions"`
	Entries         int     `json:"entries"`
	HitRate         float64 `json:"hit_rate"`
	AvgLookupTimeMs float64 `json:"avg_lookup_time_ms"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newStatsResponse(s cache.Stats) StatsResponse {
	return StatsResponse{
		Requests:        s.Requests,
		Hits:            s.Hits,
		Misses:          s.Misses,
		Evictions:       s.Evictions,
		Entries:         s.Entries,
		HitRate:         s.HitRate,
		AvgLookupTimeMs: s.AvgLookupTimeMs(),
	}
}
