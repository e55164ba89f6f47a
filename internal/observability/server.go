// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/amethyst-dev/amethyst/pkg/amethyst"
	"github.com/amethyst-dev/amethyst/pkg/collector"
	"github.com/amethyst-dev/amethyst/pkg/command"
)

// ReadinessChecker returns whether the service is ready to accept connections.
type ReadinessChecker func() bool

// Metrics contains process-level Prometheus metrics for Amethyst.
type Metrics struct {
	BuildInfo *prometheus.GaugeVec
	Ready     prometheus.GaugeFunc
}

// NewMetrics creates and registers the process metrics along with the
// command, collector and gateway metrics of the framework packages.
func NewMetrics(reg prometheus.Registerer, isReady ReadinessChecker) *Metrics {
	m := &Metrics{
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "amethyst_build_info",
				Help: "Build information, always 1",
			},
			[]string{"version"},
		),
		Ready: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "amethyst_ready",
				Help: "1 once application commands have been synced after the ready event",
			},
			func() float64 {
				if isReady == nil || isReady() {
					return 1
				}
				return 0
			},
		),
	}

	reg.MustRegister(m.BuildInfo)
	reg.MustRegister(m.Ready)
	command.RegisterMetrics(reg)
	collector.RegisterMetrics(reg)
	amethyst.RegisterMetrics(reg)

	return m
}

// Server serves metrics, health probes and the application command payload.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	payload    func() command.Payload
	logger     *slog.Logger
	running    atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCommandPayload serves the result of fn as JSON on /commands.
func WithCommandPayload(fn func() command.Payload) Option {
	return func(s *Server) {
		s.payload = fn
	}
}

// NewServer creates a server listening on addr ("127.0.0.1:9100", ":0").
// It owns a fresh Prometheus registry holding the Go and process collectors
// plus the framework metrics.
func NewServer(addr string, readinessChecker ReadinessChecker, opts ...Option) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry, readinessChecker),
		isReady:  readinessChecker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the server's Prometheus registry, for components that
// register their own collectors.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Metrics returns the process metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving. The returned channel receives a serve failure after
// Start returns and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("GET /healthz/liveness", s.handleLiveness)
	mux.HandleFunc("GET /healthz/readiness", s.handleReadiness)
	if s.payload != nil {
		mux.HandleFunc("GET /commands", s.handleCommands)
	}

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Debug("observability server listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// still running; allow another Stop
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	s.logger.Debug("observability server stopped")
	return nil
}

// Addr returns the listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	w.Write([]byte(body + "\n"))
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

// handleReadiness returns 503 until application commands have been synced.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if s.isReady == nil || s.isReady() {
		writeText(w, http.StatusOK, "ok")
		return
	}
	writeText(w, http.StatusServiceUnavailable, "not ready")
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(s.payload())
	if err != nil {
		s.logger.Error("encode command payload", "error", err)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write(data)
}
