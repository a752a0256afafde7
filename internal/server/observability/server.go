// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the service is ready to accept requests.
type ReadinessChecker func() bool

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	SessionFlows *prometheus.CounterVec
	RPCs         *prometheus.CounterVec
}

// NewMetrics creates the custom metrics and registers them on reg. When
// hasherInFlight is not nil it backs the authsvc_hasher_inflight gauge.
func NewMetrics(reg prometheus.Registerer, hasherInFlight func() float64) *Metrics {
	m := &Metrics{
		SessionFlows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsvc_session_flows_total",
				Help: "Session flows by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		RPCs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsvc_grpc_requests_total",
				Help: "gRPC requests by method and status code",
			},
			[]string{"method", "code"},
		),
	}

	reg.MustRegister(m.SessionFlows, m.RPCs)

	if hasherInFlight != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "authsvc_hasher_inflight",
				Help: "Password hash jobs currently running",
			},
			hasherInFlight,
		))
	}

	return m
}

// RecordFlow implements services.MetricsRecorder.
func (m *Metrics) RecordFlow(flow, outcome string) {
	m.SessionFlows.WithLabelValues(flow, outcome).Inc()
}

// RecordRPC counts a finished gRPC call.
func (m *Metrics) RecordRPC(method, code string) {
	m.RPCs.WithLabelValues(method, code).Inc()
}

// Server serves /metrics and the health probes.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
	logger     logging.Logger
}

// NewServer creates an observability server with its own registry.
// addr is "host:port"; use "127.0.0.1:0" for an ephemeral port.
func NewServer(addr string, readiness ReadinessChecker, hasherInFlight func() float64, logger logging.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry, hasherInFlight),
		isReady:  readiness,
		logger:   logger.With("module", "observability"),
	}
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving. The returned channel receives a serve error, if
// any, and is closed when the server stops.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
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
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logging.LogError(ctx, s.logger, "observability server error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info(ctx, "observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	s.logger.Info(ctx, "observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready\n"))
}
