// Package commands implements CLI command handlers for submean.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/submean/pkg/config"
	"github.com/Sumatoshi-tech/submean/pkg/observability"
	"github.com/Sumatoshi-tech/submean/pkg/version"
)

// Persistent flag names shared by all subcommands.
const (
	flagConfig          = "config"
	flagLogLevel        = "log-level"
	flagLogJSON         = "log-json"
	flagOTLPEndpoint    = "otlp-endpoint"
	flagMetricsTextfile = "metrics-textfile"
)

// NewRootCommand creates the submean root command with its persistent flags
// and the mean subcommand.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "submean",
		Short: "Sub-Gaussian robust means over N-dimensional arrays",
		Long: `submean computes robust means that stay within O(σ·√(ln(1/δ)/n)) of the true
mean with probability 1-δ, even for heavy-tailed data.

Commands:
  mean      Reduce an input document along axes`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "Config file (default: ./submean.yaml, ~/.config/submean, /etc/submean)")
	flags.String(flagLogLevel, "", "Log level: debug, info, warn, error")
	flags.Bool(flagLogJSON, false, "Write logs as JSON")
	flags.String(flagOTLPEndpoint, "", "OTLP gRPC collector address (e.g. localhost:4317)")
	flags.String(flagMetricsTextfile, "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(NewMeanCommand())

	return rootCmd
}

// loadConfig reads the config file and applies the persistent flag
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed(flagLogLevel) {
		cfg.Logging.Level, _ = cmd.Flags().GetString(flagLogLevel)
	}

	if cmd.Flags().Changed(flagLogJSON) {
		asJSON, _ := cmd.Flags().GetBool(flagLogJSON)

		cfg.Logging.Format = config.LogFormatText
		if asJSON {
			cfg.Logging.Format = config.LogFormatJSON
		}
	}

	if cmd.Flags().Changed(flagOTLPEndpoint) {
		cfg.Telemetry.OTLPEndpoint, _ = cmd.Flags().GetString(flagOTLPEndpoint)
	}

	if cmd.Flags().Changed(flagMetricsTextfile) {
		cfg.Telemetry.PrometheusTextfile, _ = cmd.Flags().GetString(flagMetricsTextfile)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

// initTelemetry starts observability for one command run. Logs go to the
// command's stderr.
func initTelemetry(cmd *cobra.Command, cfg *config.Config) (observability.Providers, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.PrometheusTextfile = cfg.Telemetry.PrometheusTextfile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON()
	obsCfg.LogOutput = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// shutdownTelemetry flushes exporters and joins any flush error into errp.
func shutdownTelemetry(providers observability.Providers, errp *error) {
	shutdownErr := providers.Shutdown(context.Background())
	if shutdownErr != nil {
		*errp = errors.Join(*errp, fmt.Errorf("shutdown observability: %w", shutdownErr))
	}
}
