package upstream

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// DefaultSimulatedLatency is the delay of every simulated lookup.
	DefaultSimulatedLatency = 100 * time.Millisecond

	// DefaultSimulatedPrefix is the /24 the simulated addresses are drawn
	// from.
	DefaultSimulatedPrefix = "172.217.14"
)

// ErrNotFound is returned when the upstream has no value for a key.
var ErrNotFound = errors.New("no record found")

// SimulatedConfig configures a Simulated resolver.
type SimulatedConfig struct {
	// Latency is slept on every lookup. Zero selects
	// DefaultSimulatedLatency, a negative value disables the delay.
	Latency time.Duration

	// Prefix is the first three octets of every returned address.
	Prefix string

	// NotFound lists keys that always fail with ErrNotFound.
	NotFound []string
}

// Simulated stands in for a real upstream: it waits a fixed latency and then
// returns a random address in Prefix.0/24. Repeated lookups of the same key
// are not guaranteed to return the same address, which makes cache hits and
// misses easy to tell apart.
type Simulated struct {
	latency  time.Duration
	prefix   string
	notFound map[string]struct{}

	mu      sync.Mutex
	lookups uint64
}

// NewSimulated returns a Simulated resolver for cfg.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	s := &Simulated{
		latency:  cfg.Latency,
		prefix:   cfg.Prefix,
		notFound: make(map[string]struct{}, len(cfg.NotFound)),
	}

	if s.latency == 0 {
		s.latency = DefaultSimulatedLatency
	}
	if s.prefix == "" {
		s.prefix = DefaultSimulatedPrefix
	}
	for _, key := range cfg.NotFound {
		s.notFound[key] = struct{}{}
	}

	return s
}

// ResolveUpstream implements cache.Resolver.
func (s *Simulated) ResolveUpstream(key string) (string, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()

	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	if _, ok := s.notFound[key]; ok {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	addr := fmt.Sprintf("%s.%d", s.prefix, rand.IntN(255))
	log.Tracef("Simulated lookup %s -> %s", key, addr)

	return addr, nil
}

// Lookups returns the number of upstream lookups served so far.
func (s *Simulated) Lookups() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookups
}
