// Package config provides configuration management for nmapx.
// It handles loading, validation, and defaults for the scan pipeline:
// the nmap binary and elevation settings, output location, timeouts,
// logging, metrics, and an optional replacement scan plan.
package config

import (
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/logging"
	"github.com/limulus26/Nmapx/internal/scanning"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600
)

// Config represents the application configuration.
type Config struct {
	// Scanning settings
	Scanning ScanningConfig `yaml:"scanning" json:"scanning"`

	// Logging settings
	Logging logging.Config `yaml:"logging" json:"logging"`

	// Metrics settings
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Phases replaces the built-in scan plan when non-empty
	Phases []PhaseConfig `yaml:"phases,omitempty" json:"phases,omitempty" validate:"dive"`
}

// ScanningConfig holds nmap invocation settings.
type ScanningConfig struct {
	// Binary is the nmap executable name or path
	Binary string `yaml:"binary" json:"binary" validate:"required"`

	// Elevate runs nmap through ElevationHelper
	Elevate bool `yaml:"elevate" json:"elevate"`

	// ElevationHelper is the privilege elevation executable
	ElevationHelper string `yaml:"elevation_helper" json:"elevation_helper" validate:"required_if=Elevate true"`

	// ElevationArgs are placed between the helper and nmap
	ElevationArgs []string `yaml:"elevation_args" json:"elevation_args"`

	// ResultsDir is the parent directory of every run directory
	ResultsDir string `yaml:"results_dir" json:"results_dir" validate:"required"`

	// PhaseTimeout bounds each nmap invocation unless a phase sets its own
	PhaseTimeout time.Duration `yaml:"phase_timeout" json:"phase_timeout" validate:"gt=0"`

	// ProgressInterval is how often a running phase reports progress
	ProgressInterval time.Duration `yaml:"progress_interval" json:"progress_interval" validate:"gt=0"`

	// TerminateGrace is how long a terminated nmap gets before it is killed
	TerminateGrace time.Duration `yaml:"terminate_grace" json:"terminate_grace" validate:"gt=0"`
}

// MetricsConfig controls the per-run Prometheus textfile.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Textfile is written inside the run directory
	Textfile string `yaml:"textfile" json:"textfile" validate:"required_if=Enabled true"`
}

// PhaseConfig is the configuration form of scanning.Phase.
type PhaseConfig struct {
	Name           string        `yaml:"name" json:"name" validate:"required"`
	Flags          []string      `yaml:"flags" json:"flags"`
	PortRestricted bool          `yaml:"port_restricted" json:"port_restricted"`
	Timeout        time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Binary:           "nmap",
			Elevate:          true,
			ElevationHelper:  "sudo",
			ElevationArgs:    []string{"-S", "-p", ""},
			ResultsDir:       "results",
			PhaseTimeout:     2 * time.Hour,
			ProgressInterval: 15 * time.Second,
			TerminateGrace:   5 * time.Second,
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled:  true,
			Textfile: "metrics.prom",
		},
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // Return defaults if no config file
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate validates the configuration, including the scan plan it describes.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var field string
		var verrs validator.ValidationErrors
		if goerrors.As(err, &verrs) && len(verrs) > 0 {
			field = verrs[0].Namespace()
		}
		return &errors.ConfigError{
			Code:    errors.CodeValidation,
			Message: "invalid configuration",
			Field:   field,
			Cause:   err,
		}
	}

	switch c.Logging.Format {
	case logging.FormatText, logging.FormatJSON, "":
	default:
		return errors.ErrConfigInvalid("logging.format", c.Logging.Format)
	}

	if _, err := c.Plan(); err != nil {
		return errors.WrapConfigError(errors.CodeValidation, "invalid phases", err)
	}

	return nil
}

// Plan builds the scan plan: the configured phases, or the built-in plan
// when none are configured.
func (c *Config) Plan() (*scanning.Plan, error) {
	if len(c.Phases) == 0 {
		return scanning.DefaultPlan(), nil
	}

	phases := make([]scanning.Phase, len(c.Phases))
	for i, p := range c.Phases {
		phases[i] = scanning.Phase{
			Name:           p.Name,
			Flags:          p.Flags,
			PortRestricted: p.PortRestricted,
			Timeout:        p.Timeout,
		}
	}
	return scanning.NewPlan(phases...)
}
