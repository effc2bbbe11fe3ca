// Package cache implements a single-process lookup cache in front of an
// upstream resolver.
//
// Properties of this package:
//   - A hash index plus a doubly linked recency list give O(1) lookup,
//     promotion and least-recently-used eviction. The list lives in an arena
//     addressed by indices, with a free list for reclaimed slots.
//   - Every entry gets the same fixed TTL. Expiry is lazy (checked on every
//     access) and proactive (a background sweeper owned by the cache).
//   - One mutex serializes lookups, the sweeper, the statistics and, unless
//     Config.CoalesceMisses is set, the upstream call made on a miss.
//   - A failed upstream call is reported as a *ResolutionError and never
//     cached.
package cache
