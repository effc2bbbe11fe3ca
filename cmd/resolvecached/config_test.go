package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"resolvecache/internal/cache"
	"resolvecache/internal/upstream"
)

// writeConfigFile writes contents to a config file in a temporary directory
// and returns its path.
func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), defaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	// A config file that doesn't exist is only a warning.
	missing := filepath.Join(t.TempDir(), "missing.conf")

	cfg, err := loadConfig([]string{"--configfile=" + missing})
	require.NoError(t, err)
	require.Error(t, cfg.configFileErr)

	require.Equal(t, defaultListen, cfg.Listen)
	require.Equal(t, defaultCapacity, cfg.Cache.Capacity)
	require.Equal(t, cache.DefaultTTL, cfg.Cache.TTL)
	require.Equal(t, cache.DefaultSweepInterval, cfg.Cache.SweepInterval)
	require.False(t, cfg.Cache.CoalesceMisses)
	require.Equal(t, upstreamModeSimulated, cfg.Upstream.Mode)
	require.Equal(t, upstream.DefaultSimulatedLatency, cfg.Upstream.Latency)
	require.False(t, cfg.Prometheus.Enable)
	require.Equal(t, defaultLogLevel, cfg.DebugLevel)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	path := writeConfigFile(t, `
[Application Options]
listen=127.0.0.1:9000
debuglevel=debug

[cache]
cache.capacity=64
cache.ttl=30s

[upstream]
upstream.mode=dns
upstream.dnsserver=127.0.0.1:5353
`)

	cfg, err := loadConfig([]string{
		"--configfile=" + path,
		"--cache.capacity=128",
		"--prefetch=example.com",
		"--prefetch=google.com",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.configFileErr)

	// Values from the file.
	require.Equal(t, "127.0.0.1:9000", cfg.Listen)
	require.Equal(t, "debug", cfg.DebugLevel)
	require.Equal(t, 30*time.Second, cfg.Cache.TTL)
	require.Equal(t, upstreamModeDNS, cfg.Upstream.Mode)
	require.Equal(t, "127.0.0.1:5353", cfg.Upstream.DNSServer)

	// Command line flags take precedence.
	require.Equal(t, 128, cfg.Cache.Capacity)
	require.Equal(t, []string{"example.com", "google.com"}, cfg.Prefetch)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	missing := "--configfile=" + filepath.Join(t.TempDir(), "missing.conf")

	tests := []struct {
		name string
		args []string
	}{
		{name: "zero capacity", args: []string{"--cache.capacity=0"}},
		{name: "negative ttl", args: []string{"--cache.ttl=-1s"}},
		{
			name: "negative sweep interval",
			args: []string{"--cache.sweepinterval=-1s"},
		},
		{name: "empty listen", args: []string{"--listen="}},
		{name: "unknown mode", args: []string{"--upstream.mode=carrier"}},
		{
			name: "metrics without namespace",
			args: []string{
				"--prometheus.enable", "--prometheus.namespace=",
			},
		},
		{
			name: "dns without server",
			args: []string{
				"--upstream.mode=dns", "--upstream.dnsserver=",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := loadConfig(append([]string{missing}, test.args...))
			require.Error(t, err)
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "[cache]\ncache.capacity=lots\n")

	_, err := loadConfig([]string{"--configfile=" + path})
	require.Error(t, err)
}

func TestNewResolver(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	r, err := newResolver(cfg.Upstream)
	require.NoError(t, err)
	require.IsType(t, &upstream.Simulated{}, r)

	cfg.Upstream.Mode = upstreamModeDNS
	r, err = newResolver(cfg.Upstream)
	require.NoError(t, err)
	require.IsType(t, &upstream.DNS{}, r)

	cfg.Upstream.Mode = "carrier"
	_, err = newResolver(cfg.Upstream)
	require.Error(t, err)
}
