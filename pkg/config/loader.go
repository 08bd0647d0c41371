package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = "submean"
	configType      = "yaml"
	envPrefix       = "SUBMEAN"
	envKeySeparator = "_"
)

// LoadConfig loads configuration from file, environment variables and
// defaults. If configPath is empty, submean.yaml is searched in the working
// directory, $HOME/.config/submean and /etc/submean. A missing file is not an
// error; an explicit path that does not exist is.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home + "/.config/submean")
		}

		viperCfg.AddConfigPath("/etc/submean")
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Estimator: EstimatorConfig{
			Delta:          DefaultDelta,
			FlattenedDelta: DefaultFlattenedDelta,
			MaxIterations:  DefaultMaxIterations,
			Workers:        DefaultWorkers,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Telemetry: TelemetryConfig{
			Environment: DefaultEnvironment,
			SampleRatio: DefaultSampleRatio,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	defaults := Default()

	viperCfg.SetDefault("estimator.delta", defaults.Estimator.Delta)
	viperCfg.SetDefault("estimator.flattened_delta", defaults.Estimator.FlattenedDelta)
	viperCfg.SetDefault("estimator.max_iterations", defaults.Estimator.MaxIterations)
	viperCfg.SetDefault("estimator.workers", defaults.Estimator.Workers)

	viperCfg.SetDefault("logging.level", defaults.Logging.Level)
	viperCfg.SetDefault("logging.format", defaults.Logging.Format)

	viperCfg.SetDefault("telemetry.otlp_endpoint", defaults.Telemetry.OTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_headers", defaults.Telemetry.OTLPHeaders)
	viperCfg.SetDefault("telemetry.otlp_insecure", defaults.Telemetry.OTLPInsecure)
	viperCfg.SetDefault("telemetry.prometheus_textfile", defaults.Telemetry.PrometheusTextfile)
	viperCfg.SetDefault("telemetry.environment", defaults.Telemetry.Environment)
	viperCfg.SetDefault("telemetry.sample_ratio", defaults.Telemetry.SampleRatio)
}
