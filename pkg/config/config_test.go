package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/submean/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "submean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.InDelta(t, 0.01, cfg.Estimator.Delta, 0)
	assert.InDelta(t, 0.05, cfg.Estimator.FlattenedDelta, 0)
	assert.Equal(t, 200, cfg.Estimator.MaxIterations)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
estimator:
  delta: 0.001
  max_iterations: 50
  workers: 4
logging:
  level: debug
  format: json
telemetry:
  otlp_endpoint: "localhost:4317"
  otlp_insecure: true
  prometheus_textfile: /var/lib/node_exporter/submean.prom
  environment: staging
  sample_ratio: 0.25
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.001, cfg.Estimator.Delta, 0)
	assert.InDelta(t, 0.05, cfg.Estimator.FlattenedDelta, 0)
	assert.Equal(t, 50, cfg.Estimator.MaxIterations)
	assert.Equal(t, 4, cfg.Estimator.Workers)
	assert.True(t, cfg.Logging.JSON())
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
	assert.Equal(t, "/var/lib/node_exporter/submean.prom", cfg.Telemetry.PrometheusTextfile)
	assert.Equal(t, "staging", cfg.Telemetry.Environment)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 0)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("SUBMEAN_ESTIMATOR_DELTA", "0.2")
	t.Setenv("SUBMEAN_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig(writeConfig(t, "estimator:\n  delta: 0.001\n"))
	require.NoError(t, err)

	assert.InDelta(t, 0.2, cfg.Estimator.Delta, 0)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"delta_zero", "estimator:\n  delta: 0\n", config.ErrInvalidDelta},
		{"delta_one", "estimator:\n  delta: 1\n", config.ErrInvalidDelta},
		{"flattened_delta", "estimator:\n  flattened_delta: 2\n", config.ErrInvalidDelta},
		{"iterations", "estimator:\n  max_iterations: 0\n", config.ErrInvalidIterations},
		{"workers", "estimator:\n  workers: -2\n", config.ErrInvalidWorkers},
		{"log_level", "logging:\n  level: loud\n", config.ErrInvalidLogLevel},
		{"log_format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"sample_ratio", "telemetry:\n  sample_ratio: 1.5\n", config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoggingConfig_SlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := config.LoggingConfig{Level: tt.level}.SlogLevel()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
