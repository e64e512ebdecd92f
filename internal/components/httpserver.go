package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/bootkit/internal/logger"
	"github.com/marmos91/bootkit/pkg/configbind"
	"github.com/marmos91/bootkit/pkg/datasize"
)

// HTTPConfig configures the HTTP server. It binds under "http-server".
type HTTPConfig struct {
	Host string `config:"host" description:"listen address; all interfaces when empty"`

	// Port 0 picks a free port.
	Port int `config:"port" default:"8080" validate:"min=0,max=65535"`

	ReadTimeout     time.Duration `config:"read-timeout" default:"10s"`
	WriteTimeout    time.Duration `config:"write-timeout" default:"10s"`
	ShutdownTimeout time.Duration `config:"shutdown-timeout" default:"10s" description:"grace period for in-flight requests on stop"`

	MaxRequestSize datasize.Size `config:"max-request-size" default:"1MiB" description:"largest accepted request body"`
	LogRequests    bool          `config:"log-requests" default:"true"`
}

var httpSchema = configbind.MustSchema[HTTPConfig]("http-server-config")

// Server serves the node status and metrics endpoints.
//
// Endpoints:
//   - GET /v1/status: node status document
//   - GET /health: liveness check
//   - GET /metrics: Prometheus exposition, 404 when metrics are disabled
type Server struct {
	config  HTTPConfig
	node    *Node
	metrics *Metrics
	server  *http.Server

	mu           sync.Mutex
	listener     net.Listener
	serveErr     chan error
	shutdownOnce sync.Once
}

// NewServer creates a stopped server.
func NewServer(cfg *HTTPConfig, node *Node, m *Metrics) *Server {
	s := &Server{config: *cfg, node: node, metrics: m}
	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.config.LogRequests {
		r.Use(requestLogger)
	}
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	if s.config.MaxRequestSize > 0 {
		r.Use(middleware.RequestSize(s.config.MaxRequestSize.Int64()))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.status)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1/status", http.StatusTemporaryRedirect)
	})
	return r
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := s.node.Status()
	code := http.StatusOK
	if resp.Data.StartedAt == "" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// Start binds the listener and serves in the background. A bind failure is
// returned so the lifecycle rolls back.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.serveErr = make(chan error, 1)
	s.mu.Unlock()

	go func() {
		err := s.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", logger.Err(err))
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	logger.InfoCtx(ctx, "HTTP server listening", logger.Address(ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to the shutdown timeout for
// in-flight requests. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var stopErr error
	s.shutdownOnce.Do(func() {
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.server.Shutdown(ctx); err != nil {
			stopErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			return
		}

		s.mu.Lock()
		serveErr := s.serveErr
		s.mu.Unlock()
		if serveErr != nil {
			stopErr = <-serveErr
		}
		logger.InfoCtx(ctx, "HTTP server stopped")
	})
	return stopErr
}

// instrument records request metrics by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.ObserveRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("HTTP request",
			"request_id", middleware.GetReqID(r.Context()),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(ww.Status()),
			logger.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode response", logger.Err(err))
	}
}
