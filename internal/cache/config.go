package cache

import (
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
)

const (
	// DefaultTTL is the time-to-live given to every inserted entry when
	// Config.TTL is left at zero.
	DefaultTTL = 5 * time.Second

	// DefaultSweepInterval is how often expired entries are swept when
	// Config.SweepInterval is left at zero.
	DefaultSweepInterval = 5 * time.Second
)

// Config controls cache capacity, expiry and maintenance behavior.
//
// Zero values for TTL and SweepInterval select the defaults above. Capacity
// has no default: a cache that can hold nothing is a configuration mistake.
type Config struct {
	// Capacity is the maximum number of entries held at once. Must be
	// positive.
	Capacity int

	// TTL is the fixed time-to-live applied to every entry on insert.
	TTL time.Duration

	// SweepInterval is the period of the background sweeper.
	SweepInterval time.Duration

	// Resolver is consulted on every miss. Required.
	Resolver Resolver

	// Clock is the time source for deadlines and latency accounting.
	// Defaults to the wall clock.
	Clock clock.Clock

	// SweepTicker drives the background sweeper. Defaults to a ticker
	// firing every SweepInterval. The cache takes ownership and stops it
	// on Close.
	SweepTicker ticker.Ticker

	// CoalesceMisses releases the cache lock around the upstream call and
	// lets concurrent misses on the same key share one call. Off by
	// default, in which case every caller is serialized behind the lock,
	// upstream call included.
	CoalesceMisses bool
}

// withDefaults validates cfg and returns a copy with defaults filled in.
func (cfg Config) withDefaults() (Config, error) {
	switch {
	case cfg.Capacity <= 0:
		return cfg, &ConfigError{
			Field: "Capacity", Reason: "must be positive",
		}

	case cfg.TTL < 0:
		return cfg, &ConfigError{
			Field: "TTL", Reason: "must not be negative",
		}

	case cfg.SweepInterval < 0:
		return cfg, &ConfigError{
			Field: "SweepInterval", Reason: "must not be negative",
		}

	case cfg.Resolver == nil:
		return cfg, &ConfigError{
			Field: "Resolver", Reason: "is required",
		}
	}

	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.SweepTicker == nil {
		cfg.SweepTicker = ticker.New(cfg.SweepInterval)
	}

	return cfg, nil
}
