package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"resolvecache/internal/cache"
)

// Resolver is the part of *cache.Cache the server needs.
type Resolver interface {
	Resolve(key string) (string, error)
	Stats() cache.Stats
}

// Config configures a Server.
type Config struct {
	// Cache answers resolve and stats requests.
	Cache Resolver

	// Gatherer backs /metrics. If nil, /metrics is not served.
	Gatherer prometheus.Gatherer

	// ReadHeaderTimeout bounds how long a client may take to send request
	// headers. Zero selects 10s.
	ReadHeaderTimeout time.Duration
}

// Server exposes a cache over HTTP/JSON.
type Server struct {
	cfg Config
	mux *http.ServeMux

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
	done     chan struct{}
}

// New builds a Server. It doesn't listen until Start is called.
func New(cfg Config) *Server {
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}

	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}

	// A trailing wildcard also matches "/v1/resolve/" so an empty key
	// reaches the cache and is rejected there.
	s.mux.HandleFunc("GET /v1/resolve/{key...}", s.handleResolve)
	s.mux.HandleFunc("GET /v1/stats", s.handleStats)

	if cfg.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(
			cfg.Gatherer, promhttp.HandlerOpts{},
		))
	}

	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return errors.New("server already started")
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.listener = lis
	s.done = make(chan struct{})
	s.httpSrv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)

		err := srv.Serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server stopped: %v", err)
		}
	}(s.httpSrv, s.done)

	log.Infof("HTTP API listening on %s", lis.Addr())

	return nil
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.httpSrv, s.done
	s.httpSrv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	<-done

	log.Infof("HTTP API stopped")

	return nil
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	value, err := s.cfg.Cache.Resolve(key)
	if err != nil {
		var resErr *cache.ResolutionError

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, cache.ErrEmptyKey):
			status = http.StatusBadRequest

		case errors.Is(err, cache.ErrClosed):
			status = http.StatusServiceUnavailable

		case errors.As(err, &resErr):
			status = http.StatusBadGateway
		}

		log.Debugf("Resolve %q failed with %d: %v", key, status, err)
		writeJSON(w, status, ErrorResponse{Error: err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{Key: key, Value: value})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStatsResponse(s.cfg.Cache.Stats()))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("Unable to write response: %v", err)
	}
}
