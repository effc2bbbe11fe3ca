package cache

// Resolver is the upstream source of truth consulted on a cache miss.
//
// ResolveUpstream may block for as long as it needs; the cache applies no
// timeout of its own. Implementations must not call back into the cache.
type Resolver interface {
	ResolveUpstream(key string) (string, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(key string) (string, error)

// ResolveUpstream calls f(key).
func (f ResolverFunc) ResolveUpstream(key string) (string, error) {
	return f(key)
}
