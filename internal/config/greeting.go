package config

import (
	"errors"
	"time"
)

// GreetingConfig controls what GET / answers with.
//
// An empty Message means the example documented in the service contract is
// served, which is "Hello World\n" for the embedded contract.
type GreetingConfig struct {
	Message      string `json:"message" yaml:"message"`
	ContractFile string `json:"contract_file" yaml:"contract_file"`
}

// DefaultGreetingConfig returns the default greeting configuration
func DefaultGreetingConfig() GreetingConfig {
	return GreetingConfig{}
}

// HotReloadConfig controls reloading the greeting while serving.
type HotReloadConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
	// Watch holds extra files that trigger a reload besides the config
	// and contract files.
	Watch []string `json:"watch" yaml:"watch"`
}

// DefaultHotReloadConfig returns default hot reload configuration
func DefaultHotReloadConfig() HotReloadConfig {
	return HotReloadConfig{
		Enabled:  false,
		Debounce: 500 * time.Millisecond,
	}
}

func (h HotReloadConfig) Validate() error {
	var errs []error
	if h.Debounce < 0 {
		errs = append(errs, errors.New("debounce must be non-negative"))
	}
	for _, p := range h.Watch {
		if p == "" {
			errs = append(errs, errors.New("watch entries cannot be empty"))
			break
		}
	}
	return errors.Join(errs...)
}
