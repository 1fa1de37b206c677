package verify

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configs that fail Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the harness settings read from YAML.
type Config struct {
	// Qubits is log2 of the target vector length.
	Qubits int `yaml:"qubits"`
	Shots  int `yaml:"shots"`

	RTol float64 `yaml:"rtol"`
	ATol float64 `yaml:"atol"`

	// Seed makes targets and sampling reproducible; nil draws fresh entropy.
	Seed *uint64 `yaml:"seed"`

	// Trials and Workers drive the bench command.
	Trials  int `yaml:"trials"`
	Workers int `yaml:"workers"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Qubits:   4,
		Shots:    DefaultShots,
		RTol:     DefaultRTol,
		ATol:     DefaultATol,
		Trials:   10,
		Workers:  runtime.NumCPU(),
		LogLevel: "info",
	}
}

// LoadConfig reads path over DefaultConfig. Keys missing from the file keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no trial could run with.
func (c *Config) Validate() error {
	switch {
	case c.Qubits < 1:
		return fmt.Errorf("%w: qubits must be >= 1, got %d", ErrInvalidConfig, c.Qubits)
	case c.Shots < 1:
		return fmt.Errorf("%w: shots must be >= 1, got %d", ErrInvalidConfig, c.Shots)
	case c.RTol < 0 || c.ATol < 0:
		return fmt.Errorf("%w: tolerances must be non-negative", ErrInvalidConfig)
	case c.Trials < 1:
		return fmt.Errorf("%w: trials must be >= 1, got %d", ErrInvalidConfig, c.Trials)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// VerifierOptions returns the Verifier options the config selects.
func (c *Config) VerifierOptions() []Option {
	return []Option{WithShots(c.Shots), WithTolerance(c.RTol, c.ATol)}
}
