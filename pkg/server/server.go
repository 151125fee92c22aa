// Package server mounts validated routes on an http.ServeMux.
//
// It backs the routeval serve and try commands: each route pattern gets the
// validation middleware for its Config in front of a handler, by default
// Echo, which reflects the validated request back through validation.Send.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/routeval/pkg/logging"
	"github.com/getmockd/routeval/pkg/metrics"
	"github.com/getmockd/routeval/pkg/validation"
)

// RequestIDHeader carries the request ID. An incoming value is echoed on the
// response; otherwise one is generated for the response and the access log.
const RequestIDHeader = "X-Request-ID"

// Server serves a set of validated routes.
type Server struct {
	routes  map[string]*validation.Config
	handler http.Handler
	opts    []validation.Option
	log     *slog.Logger
	mux     *http.ServeMux

	registry    *metrics.Registry
	metricsPath string
	metrics     *metrics.HTTPMetrics

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and validation failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithHandler replaces Echo as the handler behind every route.
func WithHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.handler = h
		}
	}
}

// WithValidationOptions passes options to every route's validator.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(s *Server) {
		s.opts = append(s.opts, opts...)
	}
}

// WithMetrics records request metrics in reg. A non-empty path also serves
// them at "GET path", which must not collide with a route.
func WithMetrics(reg *metrics.Registry, path string) Option {
	return func(s *Server) {
		s.registry = reg
		s.metricsPath = path
	}
}

// New builds a Server for routes keyed by ServeMux pattern.
func New(routes map[string]*validation.Config, opts ...Option) (*Server, error) {
	s := &Server{
		routes:  routes,
		handler: http.HandlerFunc(Echo),
		log:     logging.Nop(),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	vopts := append([]validation.Option{validation.WithLogger(s.log)}, s.opts...)
	for _, pattern := range s.Patterns() {
		h := validation.Middleware(routes[pattern], vopts...)(s.handler)
		if err := handle(s.mux, pattern, h); err != nil {
			return nil, err
		}
	}

	if s.registry != nil {
		s.metrics = metrics.NewHTTPMetrics(s.registry)
		_ = s.metrics.Routes.Set(float64(len(routes)))
		if s.metricsPath != "" {
			if err := handle(s.mux, "GET "+s.metricsPath, s.registry.Handler()); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// handle registers h, converting ServeMux's panic on bad patterns into an
// error.
func handle(mux *http.ServeMux, pattern string, h http.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("route %q: %v", pattern, r)
		}
	}()
	mux.Handle(pattern, h)
	return nil
}

// Patterns returns the route patterns in sorted order.
func (s *Server) Patterns() []string {
	return slices.Sorted(maps.Keys(s.routes))
}

// ServeHTTP dispatches r to its route, then logs and measures it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	rec := &statusRecorder{ResponseWriter: w}
	s.mux.ServeHTTP(rec, r)

	elapsed := time.Since(start)
	if s.metrics != nil && r.Pattern != "GET "+s.metricsPath {
		s.metrics.Observe(r.Pattern, rec.Status(), elapsed)
	}
	s.log.Info("request",
		"id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"pattern", r.Pattern,
		"status", rec.Status(),
		"duration", elapsed)
}

// Start listens on addr and serves in the background. Use Addr to learn
// the bound address when addr has port 0.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	s.httpServer = srv
	s.addr = ln.Addr().String()

	s.log.Info("starting validation server", "addr", s.addr, "routes", len(s.routes))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("stopping validation server", "addr", s.Addr())
	return srv.Shutdown(ctx)
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Status returns the recorded status, 200 if only a body was written.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
