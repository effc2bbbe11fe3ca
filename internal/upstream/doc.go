// Package upstream provides resolvers that a cache.Cache can consult on a
// miss: a simulated resolver with a fixed latency and a DNS resolver that
// queries a single configured server for address records.
package upstream
