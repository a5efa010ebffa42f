package server

import (
	"net/http"

	"github.com/leslieo2/go-hello/internal/constants"
	"github.com/leslieo2/go-hello/internal/security"
	"github.com/leslieo2/go-hello/internal/server/middleware"
)

// buildHandler wraps the router in the middleware chain. The first
// middleware applied is the innermost.
func (s *Server) buildHandler() (http.Handler, error) {
	mux, err := s.routes()
	if err != nil {
		return nil, err
	}

	var handler http.Handler = mux

	// Request size limit middleware
	handler = middleware.RequestSizeLimitMiddleware(s.config.Server.MaxRequestSize)(handler)

	// Rate limiting middleware
	if s.config.Security.RateLimit.Enabled {
		s.rateLimiter = security.NewRateLimiter(&s.config.Security.RateLimit)
		handler = s.rateLimiter.Middleware(handler)
	}

	// CORS middleware
	if s.config.Security.CORS.Enabled {
		handler = middleware.NewCORSMiddleware(s.config.Security.CORS).Handler(handler)
	}

	// Security headers middleware
	handler = middleware.SecurityHeadersMiddleware(s.config.Security.Headers)(handler)

	// Metrics middleware
	if s.config.Observability.Metrics.Enabled {
		handler = middleware.MetricsMiddleware(s.metrics, s.endpointLabel)(handler)
	}

	// Logging middleware
	handler = middleware.LoggingMiddleware(s.logger.Logger,
		constants.PathHealth, constants.PathReady, s.config.Observability.Metrics.Path)(handler)

	// Request ID middleware
	handler = middleware.RequestID(handler)

	return handler, nil
}
