package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/leslieo2/go-hello/internal/config"
	"github.com/leslieo2/go-hello/internal/constants"
	"github.com/leslieo2/go-hello/internal/contract"
	"github.com/leslieo2/go-hello/internal/observability"
	"github.com/leslieo2/go-hello/internal/security"
	"go.uber.org/zap"
)

type Server struct {
	config   *config.Config
	contract atomic.Pointer[contract.Contract]
	greeting atomic.Pointer[string]
	draining atomic.Bool
	handler  http.Handler

	reloadSource func() (*config.Config, error)

	// Security
	rateLimiter *security.RateLimiter

	// Observability
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	startTime time.Time
}

type Option func(*Server)

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTracer replaces the tracer built from the tracing config.
func WithTracer(tracer *observability.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithReloadSource sets how Reload obtains a fresh configuration, typically
// config.LoadConfig bound to the original file and flags.
func WithReloadSource(load func() (*config.Config, error)) Option {
	return func(s *Server) {
		s.reloadSource = load
	}
}

func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		config:    cfg,
		metrics:   observability.NewMetrics(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		logger, err := observability.NewLogger(cfg.Observability.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		s.logger = logger
	}

	if s.tracer == nil {
		tracer, err := observability.NewTracer(cfg.Observability.Tracing)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracer = tracer
	}

	greeting, c, err := resolveGreeting(cfg.Greeting)
	if err != nil {
		return nil, err
	}
	s.greeting.Store(&greeting)
	s.contract.Store(c)

	handler, err := s.buildHandler()
	if err != nil {
		return nil, err
	}
	s.handler = handler
	s.metrics.SetHealthStatus(true)

	s.logger.Info("Server initialized",
		zap.String("contract", c.Source()),
		zap.Int("greeting_bytes", len(greeting)),
		zap.Bool("rate_limit", cfg.Security.RateLimit.Enabled),
	)
	return s, nil
}

// resolveGreeting loads the contract and picks the greeting: the configured
// message when set, the contract's documented example otherwise.
func resolveGreeting(cfg config.GreetingConfig) (string, *contract.Contract, error) {
	c, err := contract.Load(cfg.ContractFile)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load contract: %w", err)
	}

	if cfg.Message != "" {
		return cfg.Message, c, nil
	}

	greeting, err := c.Greeting()
	if err != nil {
		return "", nil, fmt.Errorf("no greeting configured: %w", err)
	}
	return greeting, c, nil
}

// Handler returns the complete middleware chain around the router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Greeting returns the body currently served on GET /.
func (s *Server) Greeting() string {
	if g := s.greeting.Load(); g != nil {
		return *g
	}
	return ""
}

// Metrics exposes the server's collectors.
func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}

func (s *Server) newHTTPServer() *http.Server {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.config.Server.ReadTimeout,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       s.config.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
		ErrorLog:          zap.NewStdLog(s.logger.Logger),
	}
	if s.config.TLS.Enabled {
		httpServer.TLSConfig = &tls.Config{MinVersion: s.config.TLS.Version()}
	}
	return httpServer
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured shutdown timeout. TLS is used when
// enabled in the config.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := s.newHTTPServer()
	tlsEnabled := s.config.TLS.Enabled

	errCh := make(chan error, 1)
	go func() {
		if tlsEnabled {
			errCh <- httpServer.ServeTLS(ln, s.config.TLS.CertFile, s.config.TLS.KeyFile)
		} else {
			errCh <- httpServer.Serve(ln)
		}
	}()

	s.logger.Info("Serving",
		zap.String("address", ln.Addr().String()),
		zap.Bool("tls", tlsEnabled),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.draining.Store(true)
	s.metrics.SetHealthStatus(false)
	s.logger.Info("Shutting down main server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown main server", zap.Error(err))
		return fmt.Errorf("main server shutdown: %w", err)
	}
	return nil
}

// Start binds the configured address, serves the metrics endpoint on its own
// port and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run is Start with an explicit lifetime.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	ln, err := net.Listen("tcp", s.config.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Address(), err)
	}

	s.logger.Info("Starting server",
		zap.String("host", s.config.Server.Host),
		zap.String("port", s.config.Server.Port),
	)

	var (
		wg      sync.WaitGroup
		errChan = make(chan error, 2)
	)

	if s.config.Observability.Metrics.Enabled {
		metricsLn, err := net.Listen("tcp", s.config.Server.MetricsAddress())
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.config.Server.MetricsAddress(), err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.serveMetrics(ctx, metricsLn); err != nil {
				errChan <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Serve(ctx, ln); err != nil {
			errChan <- err
		}
	}()

	wg.Wait()
	close(errChan)

	// Return the first error encountered, if any
	for err := range errChan {
		if err != nil {
			return err
		}
	}
	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) serveMetrics(ctx context.Context, ln net.Listener) error {
	metricsMux := http.NewServeMux()
	metricsMux.Handle(s.config.Observability.Metrics.Path, s.metrics.Handler())

	metricsServer := &http.Server{
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting metrics server", zap.String("address", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- metricsServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down metrics server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown metrics server", zap.Error(err))
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}

// Close releases background resources. It does not stop listeners started
// by Serve; cancel their context instead.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.logger.Warn("Failed to shutdown tracer", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// endpointLabel bounds the path label of request metrics to known routes.
func (s *Server) endpointLabel(path string) string {
	switch path {
	case constants.PathRoot, constants.PathHealth, constants.PathReady, constants.PathContract:
		return path
	}
	if s.config.Observability.Metrics.Enabled && path == s.config.Observability.Metrics.Path {
		return path
	}
	return "other"
}
