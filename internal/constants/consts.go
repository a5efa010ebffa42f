package constants

import "time"

// Environment variable constants
const (
	EnvHost              = "GO_HELLO_HOST"
	EnvPort              = "GO_HELLO_PORT"
	EnvMetricsPort       = "GO_HELLO_METRICS_PORT"
	EnvReadTimeout       = "GO_HELLO_READ_TIMEOUT"
	EnvWriteTimeout      = "GO_HELLO_WRITE_TIMEOUT"
	EnvIdleTimeout       = "GO_HELLO_IDLE_TIMEOUT"
	EnvMaxRequestSize    = "GO_HELLO_MAX_REQUEST_SIZE"
	EnvShutdownTimeout   = "GO_HELLO_SHUTDOWN_TIMEOUT"
	EnvGreeting          = "GO_HELLO_GREETING"
	EnvContractFile      = "GO_HELLO_CONTRACT_FILE"
	EnvLogLevel          = "GO_HELLO_LOG_LEVEL"
	EnvLogFormat         = "GO_HELLO_LOG_FORMAT"
	EnvHotReload         = "GO_HELLO_HOT_RELOAD"
	EnvHotReloadDebounce = "GO_HELLO_HOT_RELOAD_DEBOUNCE"
	EnvRateLimitEnabled  = "GO_HELLO_RATE_LIMIT_ENABLED"
	EnvTLSEnabled        = "GO_HELLO_TLS_ENABLED"
	EnvTLSCertFile       = "GO_HELLO_TLS_CERT_FILE"
	EnvTLSKeyFile        = "GO_HELLO_TLS_KEY_FILE"
)

// DefaultGreeting is the body served on GET /. The trailing newline is part of it.
const DefaultGreeting = "Hello World\n"

// HTTP method constants
const (
	MethodGET     = "GET"
	MethodHEAD    = "HEAD"
	MethodOPTIONS = "OPTIONS"
)

// HTTP header constants
const (
	HeaderAllow          = "Allow"
	HeaderAccept         = "Accept"
	HeaderContentType    = "Content-Type"
	HeaderContentLength  = "Content-Length"
	HeaderOrigin         = "Origin"
	HeaderXRequestID     = "X-Request-ID"
	HeaderXRequestedWith = "X-Requested-With"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
)

// Content type constants
const (
	ContentTypeJSON      = "application/json"
	ContentTypeTextPlain = "text/plain; charset=utf-8"
	ContentTypeYAML      = "application/yaml"
)

// CORS headers
const (
	HeaderAccessControlAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAccessControlAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAccessControlAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAccessControlMaxAge           = "Access-Control-Max-Age"
)

// Rate limiting strategy constants
const (
	RateLimitStrategyIP     = "ip"
	RateLimitStrategyGlobal = "global"
)

// Rate limiting headers
const (
	HeaderXRateLimitLimit     = "X-RateLimit-Limit"
	HeaderXRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderXRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter          = "Retry-After"
)

// Rate limiter internal constants
const (
	// RateLimitCleanupInterval is the interval for cleaning up rate limit cache
	RateLimitCleanupInterval = 5 * time.Minute
	// RateLimitMaxCacheSize is the maximum size of the rate limit cache
	RateLimitMaxCacheSize = 10000
)

// Error code constants
const (
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrorCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrorCodeHostNotAllowed    = "HOST_NOT_ALLOWED"
)

// Built-in paths that bypass rate limiting
const (
	PathRoot     = "/"
	PathHealth   = "/health"
	PathReady    = "/ready"
	PathMetrics  = "/metrics"
	PathContract = "/openapi.yaml"
)

// Service identity reported by /health and tracing
const (
	ServiceName    = "go-hello"
	ServiceVersion = "1.0.0"
)
