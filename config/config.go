// Package config provides configuration loading and management for calmctl.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/calmctl/crossref"
)

// Config represents the complete calmctl configuration. Command-line flags
// override values loaded here.
type Config struct {
	Resolve    ResolveConfig  `yaml:"resolve"`
	Validation ValidateConfig `yaml:"validate"`
	Log        LogConfig      `yaml:"log"`
}

// ResolveConfig configures the resolve command.
type ResolveConfig struct {
	// PolicyDir is where policy documents are looked up by id.
	PolicyDir string `yaml:"policy_dir"`
	// CatalogDir holds Layer 2 catalog files ("<catalog-id>.yaml").
	CatalogDir string `yaml:"catalog_dir"`
	// OutputDir is the root for generated artifacts.
	OutputDir string `yaml:"output_dir"`
	// BaseRequirementsDir, when set, adds base-requirement entries to the
	// URL mapping, pointing into this directory.
	BaseRequirementsDir string `yaml:"base_requirements_dir"`
}

// ValidateConfig configures the validate command.
type ValidateConfig struct {
	// ArchitectureDir holds the architecture corpus to scan.
	ArchitectureDir string `yaml:"architecture_dir"`
	// ControlsDir holds the control requirement documents.
	ControlsDir string `yaml:"controls_dir"`
	// Pattern selects architecture files within ArchitectureDir
	// (doublestar syntax).
	Pattern string `yaml:"pattern"`
	// Debounce is the watch-mode settle time before re-validating.
	Debounce Duration `yaml:"debounce"`
}

// Duration wraps time.Duration so YAML values can use either a duration
// string ("250ms", "1s") or raw nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Resolve: ResolveConfig{
			PolicyDir:  "policies",
			CatalogDir: "catalogs",
			OutputDir:  "generated",
		},
		Validation: ValidateConfig{
			ArchitectureDir: "architecture",
			ControlsDir:     "controls",
			Pattern:         crossref.DefaultArchitecturePattern,
			Debounce:        Duration(250 * time.Millisecond),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Validation.Pattern == "" {
		return fmt.Errorf("validate.pattern is required")
	}
	if c.Validation.Debounce < 0 {
		return fmt.Errorf("validate.debounce must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
