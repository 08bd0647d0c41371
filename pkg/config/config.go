// Package config provides configuration loading and validation for submean.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Sumatoshi-tech/submean/pkg/estimator"
	"github.com/Sumatoshi-tech/submean/pkg/robustmean"
)

// Sentinel validation errors.
var (
	ErrInvalidDelta       = errors.New("delta must be in (0, 1)")
	ErrInvalidIterations  = errors.New("max iterations must be positive")
	ErrInvalidWorkers     = errors.New("workers must be non-negative")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be in [0, 1]")
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default configuration values.
const (
	DefaultDelta          = robustmean.DefaultDelta
	DefaultFlattenedDelta = robustmean.DefaultFlattenedDelta
	DefaultMaxIterations  = estimator.DefaultMaxIterations
	DefaultWorkers        = 0
	DefaultLogLevel       = "info"
	DefaultLogFormat      = LogFormatText
	DefaultEnvironment    = ""
	DefaultSampleRatio    = 1.0
)

// Config holds all configuration for submean.
type Config struct {
	Estimator EstimatorConfig `mapstructure:"estimator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// EstimatorConfig holds the defaults applied to every reduction.
type EstimatorConfig struct {
	Delta          float64 `mapstructure:"delta"`
	FlattenedDelta float64 `mapstructure:"flattened_delta"`
	MaxIterations  int     `mapstructure:"max_iterations"`
	Workers        int     `mapstructure:"workers"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry and Prometheus export settings.
type TelemetryConfig struct {
	OTLPEndpoint       string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders        string  `mapstructure:"otlp_headers"`
	PrometheusTextfile string  `mapstructure:"prometheus_textfile"`
	Environment        string  `mapstructure:"environment"`
	SampleRatio        float64 `mapstructure:"sample_ratio"`
	OTLPInsecure       bool    `mapstructure:"otlp_insecure"`
}

// Validate checks every field of the configuration.
func (c *Config) Validate() error {
	if !validDelta(c.Estimator.Delta) {
		return fmt.Errorf("%w: estimator.delta=%g", ErrInvalidDelta, c.Estimator.Delta)
	}

	if !validDelta(c.Estimator.FlattenedDelta) {
		return fmt.Errorf("%w: estimator.flattened_delta=%g", ErrInvalidDelta, c.Estimator.FlattenedDelta)
	}

	if c.Estimator.MaxIterations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, c.Estimator.MaxIterations)
	}

	if c.Estimator.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Estimator.Workers)
	}

	_, err := c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	ratio := c.Telemetry.SampleRatio
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, ratio)
	}

	return nil
}

// SlogLevel parses the configured level name.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// JSON reports whether records should be written as JSON.
func (l LoggingConfig) JSON() bool {
	return strings.EqualFold(l.Format, LogFormatJSON)
}

func validDelta(delta float64) bool {
	return estimator.ValidateDelta(delta) == nil
}
