package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/health"
	"github.com/c360/llmbridge/pkg/security"
	"github.com/c360/llmbridge/pkg/tlsutil"
)

// Server exposes Prometheus metrics and the worker health aggregate over
// HTTP. It runs beside the command loop and only reads shared state through
// the registry and the health monitor.
type Server struct {
	bind     string
	port     int
	path     string
	server   *http.Server
	registry *MetricsRegistry
	monitor  *health.Monitor
	security security.Config
	mu       sync.Mutex // protects server field
}

// NewServer creates a metrics server. An empty bind address stays on
// loopback; the worker's stdio protocol is the only intended remote surface.
func NewServer(bind string, port int, path string, registry *MetricsRegistry,
	monitor *health.Monitor, securityCfg security.Config) *Server {
	if path == "" {
		path = "/metrics"
	}
	if port == 0 {
		port = 9090
	}
	if bind == "" {
		bind = "127.0.0.1"
	}

	return &Server{
		bind:     bind,
		port:     port,
		path:     path,
		registry: registry,
		monitor:  monitor,
		security: securityCfg,
	}
}

// Start runs the HTTP server until Stop is called. It blocks; run it on its
// own goroutine. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.mu.Lock()

	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapValidation(
			fmt.Errorf("server already running"),
			"Server", "Start", "start metrics server")
	}
	if s.registry == nil {
		s.mu.Unlock()
		return errors.WrapValidation(
			fmt.Errorf("nil registry"),
			"Server", "Start", "start metrics server")
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.bind, s.port),
		Handler: s.handler(),
	}

	if s.security.TLS.Server.Enabled {
		tlsConfig, err := tlsutil.LoadServerTLSConfig(s.security.TLS.Server)
		if err != nil {
			s.server = nil
			s.mu.Unlock()
			return errors.WrapExecution(err, "Server", "Start", "load TLS config")
		}
		s.server.TLSConfig = tlsConfig
	}

	srv := s.server
	useTLS := s.security.TLS.Server.Enabled
	s.mu.Unlock()

	var err error
	if useTLS {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return errors.WrapExecution(err, "Server", "Start",
			fmt.Sprintf("serve metrics on port %d", s.port))
	}

	return nil
}

// Stop shuts the server down, waiting for in-flight scrapes up to the
// context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil // allow restart
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return errors.WrapExecution(err, "Server", "Stop", "shut down HTTP server")
	}
	return nil
}

// Address returns the server address
func (s *Server) Address() string {
	scheme := "http"
	if s.security.TLS.Server.Enabled {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, s.bind, s.port, s.path)
}

// handler builds the HTTP mux: the metrics path, /health, and an index page.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintf(w, `<html>
<head><title>llmbridge Metrics</title></head>
<body>
<h1>llmbridge Worker</h1>
<p><a href="%s">Metrics</a></p>
<p><a href="/health">Health</a></p>
</body>
</html>`, s.path)
	})

	return mux
}

// handleHealth serves the aggregated component health as JSON. An unhealthy
// aggregate answers 503 so liveness probes fail over.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.monitor == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
		return
	}

	aggregate := s.monitor.AggregateHealth("llmbridge")
	if aggregate.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(aggregate)
}
