// Package config provides configuration management for descvis.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DESCVIS_ prefix)
//  3. Config file (.descvis.yaml)
package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Configuration keys that are read outside of Unmarshal.
const (
	// KeyBadFilterLogInterval is the suppression interval, in minutes,
	// between two warnings about the same failing filter.
	KeyBadFilterLogInterval = "bad-filter-log-interval"
)

const (
	// DefaultBadFilterLogInterval is used when the interval is absent or invalid.
	DefaultBadFilterLogInterval int64 = 60

	// MaxBadFilterLogInterval is the largest interval, in minutes, that fits
	// in a time.Duration. Larger values count as invalid.
	MaxBadFilterLogInterval = math.MaxInt64 / int64(time.Minute)

	// DefaultLedgerSize is the default number of failing filters remembered.
	DefaultLedgerSize = 1024
)

// Config represents the global configuration for descvis.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: trace, debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// Rules is the path of the filter rules file.
	Rules string `mapstructure:"rules" json:"rules,omitempty"`

	// Profile names the filter profile to apply.
	Profile string `mapstructure:"profile" json:"profile,omitempty"`

	// BadFilterLogInterval is the suppression interval in minutes.
	// Parsed leniently after Load; never zero or negative.
	BadFilterLogInterval int64 `mapstructure:"-" json:"badFilterLogInterval"`

	// LedgerSize caps the number of failing filters remembered.
	LedgerSize int `mapstructure:"ledger-size" json:"ledgerSize"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:             LogLevelInfo,
		LogFormat:            LogFormatText,
		NoColor:              false,
		Quiet:                false,
		BadFilterLogInterval: DefaultBadFilterLogInterval,
		LedgerSize:           DefaultLedgerSize,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of trace, debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if c.LedgerSize <= 0 {
		return fmt.Errorf("invalid ledger size %d: must be positive", c.LedgerSize)
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// SuppressionInterval returns BadFilterLogInterval as a duration.
func (c *Config) SuppressionInterval() time.Duration {
	minutes := c.BadFilterLogInterval
	if minutes <= 0 || minutes > MaxBadFilterLogInterval {
		minutes = DefaultBadFilterLogInterval
	}

	return time.Duration(minutes) * time.Minute
}

// ParseInterval parses a suppression interval in minutes. Empty,
// non-numeric, non-positive and too large values yield
// DefaultBadFilterLogInterval.
func ParseInterval(raw string) int64 {
	minutes, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || minutes <= 0 || minutes > MaxBadFilterLogInterval {
		return DefaultBadFilterLogInterval
	}

	return minutes
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// The interval falls back to its default instead of failing Load.
	cfg.BadFilterLogInterval = ParseInterval(v.GetString(KeyBadFilterLogInterval))

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", LogLevelInfo)
	v.SetDefault("log-format", LogFormatText)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("rules", "")
	v.SetDefault("profile", "")
	v.SetDefault(KeyBadFilterLogInterval, DefaultBadFilterLogInterval)
	v.SetDefault("ledger-size", DefaultLedgerSize)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("DESCVIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".descvis")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "descvis"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
// Only flags the user actually set take precedence over env and file.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
