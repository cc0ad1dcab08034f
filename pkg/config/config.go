// Package config loads warren's settings from a config file, WARREN_*
// environment variables and command-line flags, in rising precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete warren configuration.
type Config struct {
	Catalog       string        `mapstructure:"catalog"`
	MaxModules    int           `mapstructure:"max_modules"`
	Seed          int64         `mapstructure:"seed"`
	RandomSeed    bool          `mapstructure:"random_seed"`
	Kernel        string        `mapstructure:"kernel"`
	AcceptStarved bool          `mapstructure:"accept_starved"`
	Timeout       time.Duration `mapstructure:"timeout"`

	Heuristics HeuristicsConfig `mapstructure:"heuristics"`
	Output     OutputConfig     `mapstructure:"output"`
	Store      StoreConfig      `mapstructure:"store"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Playback   PlaybackConfig   `mapstructure:"playback"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// HeuristicsConfig holds the connector policy thresholds.
type HeuristicsConfig struct {
	DepthFirst float64 `mapstructure:"depth_first"`
	Random     float64 `mapstructure:"random"`
}

// OutputConfig says where generated layouts are written.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
	STL    string `mapstructure:"stl"`
}

// StoreConfig locates the run archive.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig locates the Prometheus textfile.
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// PlaybackConfig tunes replay.
type PlaybackConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Kernel names.
const (
	KernelAnalytic = "analytic"
	KernelSdfx     = "sdfx"
)

var defaults = map[string]any{
	"catalog":                "",
	"max_modules":            20,
	"seed":                   int64(0),
	"random_seed":            true,
	"kernel":                 KernelAnalytic,
	"accept_starved":         false,
	"timeout":                30 * time.Second,
	"heuristics.depth_first": 0.80,
	"heuristics.random":      0.95,
	"output.path":            "",
	"output.format":          "json",
	"output.stl":             "",
	"store.path":             "",
	"metrics.file":           "",
	"playback.delay":         150 * time.Millisecond,
	"logging.level":          "info",
	"logging.format":         "text",
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return &cfg
}

// Load reads configuration into v and decodes it. Flags must already be
// bound to v. An explicit path must exist; otherwise a warren.{toml,yaml,json}
// in the working directory is used if present.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("WARREN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("warren")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if c.MaxModules < 1 {
		return &ConfigError{Field: "max_modules", Message: fmt.Sprintf("must be at least 1, got %d", c.MaxModules)}
	}
	switch c.Kernel {
	case KernelAnalytic, KernelSdfx:
	default:
		return &ConfigError{Field: "kernel", Message: fmt.Sprintf("unknown kernel %q", c.Kernel)}
	}
	if h := c.Heuristics; h.DepthFirst < 0 || h.DepthFirst > 1 || h.Random < h.DepthFirst || h.Random > 1 {
		return &ConfigError{Field: "heuristics", Message: "thresholds must satisfy 0 <= depth_first <= random <= 1"}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Message: "must not be negative"}
	}
	switch c.Output.Format {
	case "json", "yaml", "toml":
	default:
		return &ConfigError{Field: "output.format", Message: fmt.Sprintf("unknown format %q", c.Output.Format)}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return &ConfigError{Field: "logging.level", Message: err.Error()}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
