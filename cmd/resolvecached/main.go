package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"resolvecache/internal/cache"
	"resolvecache/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		// Help output was already printed by the flags parser.
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// The signal-aware context is the root of all long-lived work. When
	// SIGINT/SIGTERM arrives it is canceled and we shut down cleanly.
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logDir := cfg.LogDir
	if cfg.NoLogFile {
		logDir = ""
	}
	logs, err := newLogManager(
		os.Stdout, logDir, cfg.MaxLogFiles, cfg.MaxLogFileSize,
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := logs.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "close log: %v\n", err)
		}
	}()

	if err := logs.parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	if cfg.configFileErr != nil {
		log.Warnf("%v", cfg.configFileErr)
	}

	resolver, err := newResolver(cfg.Upstream)
	if err != nil {
		return err
	}

	c, err := cache.New(cache.Config{
		Capacity:       cfg.Cache.Capacity,
		TTL:            cfg.Cache.TTL,
		SweepInterval:  cfg.Cache.SweepInterval,
		Resolver:       resolver,
		CoalesceMisses: cfg.Cache.CoalesceMisses,
	})
	if err != nil {
		return err
	}
	defer func() {
		// Close is idempotent; safe to call in defer.
		if err := c.Close(); err != nil {
			log.Errorf("Unable to close cache: %v", err)
		}

		logStats("Final", c.Stats())
	}()

	log.Infof("Starting resolvecached: capacity=%d, ttl=%v, "+
		"sweep_interval=%v, upstream=%s, coalesce_misses=%v",
		cfg.Cache.Capacity, cfg.Cache.TTL, cfg.Cache.SweepInterval,
		cfg.Upstream.Mode, cfg.Cache.CoalesceMisses)

	srvCfg := server.Config{Cache: c}
	if cfg.Prometheus.Enable {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			cache.NewCollector(c, cfg.Prometheus.Namespace),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(
				collectors.ProcessCollectorOpts{},
			),
		)
		srvCfg.Gatherer = registry
	}

	srv := server.New(srvCfg)
	if err := srv.Start(cfg.Listen); err != nil {
		return err
	}

	prefetch(c, cfg.Prefetch)

	<-ctx.Done()
	log.Infof("Received shutdown signal")

	stopCtx, cancel := context.WithTimeout(
		context.Background(), cfg.ShutdownTimeout,
	)
	defer cancel()

	return srv.Stop(stopCtx)
}

// prefetch resolves every key once so the first clients hit a warm cache.
func prefetch(c *cache.Cache, keys []string) {
	for _, key := range keys {
		value, err := c.Resolve(key)
		if err != nil {
			log.Warnf("Prefetch of %q failed: %v", key, err)
			continue
		}

		log.Debugf("Prefetched %q -> %s", key, value)
	}

	if len(keys) > 0 {
		logStats("Prefetch", c.Stats())
	}
}

func logStats(prefix string, s cache.Stats) {
	log.Infof("%s stats: requests=%d, hits=%d, misses=%d, evictions=%d, "+
		"entries=%d, hit_rate=%.2f%%, avg_lookup=%.3fms", prefix,
		s.Requests, s.Hits, s.Misses, s.Evictions, s.Entries,
		s.HitRate, s.AvgLookupTimeMs())
}
