package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/leslieo2/go-hello/internal/constants"
)

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Headers   SecurityHeaders `json:"headers" yaml:"headers"`
	CORS      CORSConfig      `json:"cors" yaml:"cors"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	Strategy        string        `json:"strategy" yaml:"strategy"` // "ip", "global"
	Global          *RateLimit    `json:"global" yaml:"global"`
	ByIP            *RateLimit    `json:"by_ip" yaml:"by_ip"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	MaxCacheSize    int           `json:"max_cache_size" yaml:"max_cache_size"`
}

// RateLimit contains rate limit settings for a specific entity
type RateLimit struct {
	RequestsPerSecond int `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int `json:"burst_size" yaml:"burst_size"`
}

// SecurityHeaders contains security headers configuration
type SecurityHeaders struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	HSTSMaxAge   int      `json:"hsts_max_age" yaml:"hsts_max_age"`
	AllowedHosts []string `json:"allowed_hosts" yaml:"allowed_hosts"`
}

// CORSConfig contains CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// DefaultSecurityConfig returns default security configuration
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		RateLimit: DefaultRateLimitConfig(),
		Headers:   DefaultSecurityHeaders(),
		CORS:      DefaultCORSConfig(),
	}
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:  false,
		Strategy: constants.RateLimitStrategyIP,
		Global: &RateLimit{
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		ByIP: &RateLimit{
			RequestsPerSecond: 60,
			BurstSize:         120,
		},
		CleanupInterval: constants.RateLimitCleanupInterval,
		MaxCacheSize:    constants.RateLimitMaxCacheSize,
	}
}

// DefaultSecurityHeaders returns default security headers
func DefaultSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		Enabled:    true,
		HSTSMaxAge: 31536000, // 1 year
	}
}

// DefaultCORSConfig returns default CORS configuration
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{constants.MethodGET, constants.MethodHEAD, constants.MethodOPTIONS},
		AllowedHeaders:   []string{constants.HeaderContentType, constants.HeaderAccept, constants.HeaderXRequestedWith, constants.HeaderXRequestID},
		AllowCredentials: false,
		MaxAge:           86400, // 24 hours
	}
}

// Validate validates the security configuration
func (s *SecurityConfig) Validate() error {
	var errs []error

	if err := s.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rate_limit: %w", err))
	}

	if s.Headers.HSTSMaxAge < 0 {
		errs = append(errs, errors.New("headers.hsts_max_age must be non-negative"))
	}

	if s.CORS.Enabled && len(s.CORS.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("cors.allowed_origins cannot be empty when CORS is enabled"))
	}
	if s.CORS.MaxAge < 0 {
		errs = append(errs, errors.New("cors.max_age must be non-negative"))
	}

	return errors.Join(errs...)
}

// Validate validates the rate limit configuration
func (r *RateLimitConfig) Validate() error {
	if !r.Enabled {
		return nil
	}

	var errs []error
	switch r.Strategy {
	case constants.RateLimitStrategyIP:
		if r.ByIP == nil && r.Global == nil {
			errs = append(errs, errors.New("by_ip or global limit is required for the ip strategy"))
		}
	case constants.RateLimitStrategyGlobal:
		if r.Global == nil {
			errs = append(errs, errors.New("global limit is required for the global strategy"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid strategy: %s, must be one of: ip, global", r.Strategy))
	}

	for name, limit := range map[string]*RateLimit{"global": r.Global, "by_ip": r.ByIP} {
		if limit == nil {
			continue
		}
		if limit.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("%s.requests_per_second must be positive", name))
		}
		if limit.BurstSize <= 0 {
			errs = append(errs, fmt.Errorf("%s.burst_size must be positive", name))
		}
	}

	return errors.Join(errs...)
}
