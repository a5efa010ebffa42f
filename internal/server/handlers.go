package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leslieo2/go-hello/internal/constants"
	"github.com/leslieo2/go-hello/internal/observability"
	"github.com/leslieo2/go-hello/internal/server/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var rootMethods = []string{constants.MethodGET, constants.MethodHEAD}

// routes registers every endpoint. Go 1.22 patterns give GET /{$} priority
// over the method-less /{$}, which answers 405 for everything else.
func (s *Server) routes() (*http.ServeMux, error) {
	metricsPath := s.config.Observability.Metrics.Path
	if s.config.Observability.Metrics.Enabled {
		switch metricsPath {
		case constants.PathRoot, constants.PathHealth, constants.PathReady, constants.PathContract:
			return nil, fmt.Errorf("metrics path %s collides with a built-in route", metricsPath)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.greetingHandler)
	mux.HandleFunc("/{$}", s.methodNotAllowedHandler)
	mux.HandleFunc("GET "+constants.PathHealth, s.healthHandler)
	mux.HandleFunc("GET "+constants.PathReady, s.readinessHandler)
	mux.HandleFunc("GET "+constants.PathContract, s.contractHandler)
	if s.config.Observability.Metrics.Enabled {
		mux.Handle("GET "+metricsPath, s.metrics.Handler())
	}
	mux.HandleFunc("/", s.notFoundHandler)
	return mux, nil
}

// greetingHandler serves the greeting as plain text
func (s *Server) greetingHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "serve_greeting",
		attribute.String("http.method", r.Method),
		attribute.String("http.path", r.URL.Path),
		attribute.String("http.user_agent", r.UserAgent()),
	)
	defer span.End()

	body := s.Greeting()

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeTextPlain)
	w.Header().Set(constants.HeaderContentLength, strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != constants.MethodHEAD {
		_, _ = w.Write([]byte(body))
	}

	span.SetAttributes(
		attribute.Int("http.status_code", http.StatusOK),
		attribute.Int("http.response_size", len(body)),
	)
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(constants.HeaderAllow, strings.Join(rootMethods, ", "))
	middleware.WriteError(w, http.StatusMethodNotAllowed, middleware.ErrorResponse{
		Error:   fmt.Sprintf("Method %s not allowed", r.Method),
		Code:    constants.ErrorCodeMethodNotAllowed,
		Methods: rootMethods,
	})

	s.logger.Warn("Method not allowed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
	)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusNotFound, middleware.ErrorResponse{
		Error: fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path),
		Code:  constants.ErrorCodeNotFound,
	})
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "health_check")
	defer span.End()

	health := observability.HealthStatus{
		Timestamp: time.Now(),
		Version:   constants.ServiceVersion,
		Uptime:    time.Since(s.startTime).String(),
		Checks: map[string]bool{
			"greeting": s.Greeting() != "",
			"contract": s.contract.Load() != nil,
		},
	}
	health.Status = "healthy"
	if !health.Healthy() {
		health.Status = "unhealthy"
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)

	s.logger.Debug("Health check completed",
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// readinessHandler reports ready while a greeting is loaded and the server
// is not shutting down
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "readiness_check")
	defer span.End()

	ready := s.Greeting() != "" && !s.draining.Load()

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	if ready {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
	}

	s.logger.Debug("Readiness check completed",
		zap.String("path", r.URL.Path),
		zap.Bool("ready", ready),
	)
}

// contractHandler serves the OpenAPI document describing this service
func (s *Server) contractHandler(w http.ResponseWriter, r *http.Request) {
	raw := s.contract.Load().Raw()
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeYAML)
	w.Header().Set(constants.HeaderContentLength, strconv.Itoa(len(raw)))
	_, _ = w.Write(raw)
}
