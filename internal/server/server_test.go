package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"resolvecache/internal/cache"
)

var errUpstream = errors.New("upstream down")

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	c, err := cache.New(cache.Config{
		Capacity: 2,
		TTL:      time.Minute,
		Resolver: cache.ResolverFunc(func(key string) (string, error) {
			if key == "bad.example" {
				return "", errUpstream
			}

			return "addr-" + key, nil
		}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func newTestServer(t *testing.T, c *cache.Cache) *Client {
	t.Helper()

	reg := prometheus.NewRegistry()
	reg.MustRegister(cache.NewCollector(c, "resolvecache"))

	srv := New(Config{Cache: c, Gatherer: reg})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return NewClient(ts.URL, ts.Client())
}

func TestResolveAndStats(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	client := newTestServer(t, c)
	ctx := context.Background()

	value, err := client.Resolve(ctx, "google.com")
	require.NoError(t, err)
	require.Equal(t, "addr-google.com", value)

	value, err = client.Resolve(ctx, "google.com")
	require.NoError(t, err)
	require.Equal(t, "addr-google.com", value)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Requests)
	require.EqualValues(t, 1, stats.Hits)
	require.EqualValues(t, 1, stats.Misses)
	require.Equal(t, 1, stats.Entries)
	require.InDelta(t, 50.0, stats.HitRate, 1e-9)
}

func TestResolveErrorStatus(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	client := newTestServer(t, c)
	ctx := context.Background()

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{name: "empty key", key: "", status: http.StatusBadRequest},
		{
			name: "upstream failure", key: "bad.example",
			status: http.StatusBadGateway,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := client.Resolve(ctx, test.key)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			require.Equal(t, test.status, statusErr.StatusCode)
			require.NotEmpty(t, statusErr.Message)
		})
	}

	// Closing the cache turns every resolve into a 503.
	require.NoError(t, c.Close())

	_, err := client.Resolve(ctx, "google.com")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	reg := prometheus.NewRegistry()
	reg.MustRegister(cache.NewCollector(c, "resolvecache"))

	_, err := c.Resolve("google.com")
	require.NoError(t, err)

	srv := New(Config{Cache: c, Gatherer: reg})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(
		rec, httptest.NewRequest(http.MethodGet, "/metrics", nil),
	)

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "resolvecache_cache_requests_total 1")
	require.Contains(t, string(body), "resolvecache_cache_entries 1")
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	t.Parallel()

	srv := New(Config{Cache: newTestCache(t)})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(
		rec, httptest.NewRequest(http.MethodGet, "/metrics", nil),
	)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	srv := New(Config{Cache: c})

	require.Nil(t, srv.Addr())
	require.NoError(t, srv.Start("127.0.0.1:0"))
	require.Error(t, srv.Start("127.0.0.1:0"))

	client := NewClient(srv.Addr().String(), nil)

	value, err := client.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, "addr-example.com", value)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Stop(ctx))
	require.Nil(t, srv.Addr())

	// Stopping twice is a no-op.
	require.NoError(t, srv.Stop(ctx))

	_, err = client.Resolve(context.Background(), "example.com")
	require.Error(t, err)
}
