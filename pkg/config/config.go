// Package config loads arborist settings from a YAML file, ARBORIST_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/arborist/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidDepth       = errors.New("rewrite max depth must not be negative")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTree = "tree"
)

const envPrefix = "ARBORIST"

// Config holds all arborist settings.
type Config struct {
	Language  string          `mapstructure:"language"`
	Rules     string          `mapstructure:"rules"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Rewrite   RewriteConfig   `mapstructure:"rewrite"`
}

// OutputConfig controls how trees are rendered.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// RewriteConfig bounds rewrite passes.
type RewriteConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"language":  "language",
	"rules":     "rules",
	"format":    "output.format",
	"color":     "output.color",
	"max-depth": "rewrite.max_depth",
	"log-level": "logging.level",
}

// LoadConfig reads configuration. An empty configPath searches for
// arborist.yaml in the usual places and tolerates its absence. Flags that
// exist in flags and were set by the user override every other source.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("arborist")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("$HOME/.config/arborist")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := viperCfg.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config

	if err := viperCfg.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("language", "")
	viperCfg.SetDefault("rules", "")

	viperCfg.SetDefault("output.format", FormatJSON)
	viperCfg.SetDefault("output.color", false)

	viperCfg.SetDefault("rewrite.max_depth", 0)

	viperCfg.SetDefault("logging.level", "warn")
	viperCfg.SetDefault("logging.format", "text")

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}

// Validate checks value ranges and enumerations.
func (config *Config) Validate() error {
	if !slices.Contains([]string{FormatJSON, FormatYAML, FormatTree}, config.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Output.Format)
	}

	if _, err := parseLevel(config.Logging.Level); err != nil {
		return err
	}

	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Rewrite.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, config.Rewrite.MaxDepth)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	return nil
}

// Observability converts the logging and telemetry sections.
func (config *Config) Observability(version string) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version
	obs.OTLPEndpoint = config.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(config.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = config.Telemetry.OTLPInsecure
	obs.SampleRatio = config.Telemetry.SampleRatio
	obs.LogJSON = config.Logging.Format == "json"

	if level, err := parseLevel(config.Logging.Level); err == nil {
		obs.LogLevel = level
	}

	return obs
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}

	return level, nil
}
