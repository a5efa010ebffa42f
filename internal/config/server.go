package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ServerConfig contains server-specific configuration
type ServerConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            string        `json:"port" yaml:"port"`
	MetricsPort     string        `json:"metrics_port" yaml:"metrics_port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	MaxRequestSize  int64         `json:"max_request_size" yaml:"max_request_size"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "localhost",
		Port:            "8080",
		MetricsPort:     "9090",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxRequestSize:  10 * 1024 * 1024, // 10MB
		ShutdownTimeout: 30 * time.Second,
	}
}

// Address returns host:port for the main listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// MetricsAddress returns host:port for the metrics listener
func (s ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%s", s.Host, s.MetricsPort)
}

func (s ServerConfig) validate(metricsEnabled bool) error {
	var errs []error

	if s.Host == "" {
		errs = append(errs, errors.New("server.host cannot be empty"))
	}
	if err := validatePort(s.Port, "server.port"); err != nil {
		errs = append(errs, err)
	}
	if metricsEnabled {
		if err := validatePort(s.MetricsPort, "server.metrics_port"); err != nil {
			errs = append(errs, err)
		}
		if s.Port == s.MetricsPort && s.Port != "0" {
			errs = append(errs, errors.New("server.port and server.metrics_port cannot be the same"))
		}
	}

	for field, d := range map[string]time.Duration{
		"read_timeout":     s.ReadTimeout,
		"write_timeout":    s.WriteTimeout,
		"idle_timeout":     s.IdleTimeout,
		"shutdown_timeout": s.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("server.%s must be positive", field))
		}
	}
	if s.MaxRequestSize <= 0 {
		errs = append(errs, errors.New("server.max_request_size must be positive"))
	}

	return errors.Join(errs...)
}

// validatePort validates a port string
func validatePort(portStr, fieldName string) error {
	if portStr == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("%s must be a valid port number: %w", fieldName, err)
	}

	// 0 asks the kernel for an ephemeral port
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s must be between 0 and 65535", fieldName)
	}

	return nil
}
