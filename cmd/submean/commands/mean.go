package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sumatoshi-tech/submean/pkg/config"
	"github.com/Sumatoshi-tech/submean/pkg/dtype"
	"github.com/Sumatoshi-tech/submean/pkg/robustmean"
)

const stdinName = "-"

// MeanCommand holds the flags of the mean subcommand.
type MeanCommand struct {
	delta         float64
	axes          []int
	keepDims      bool
	dtypeName     string
	flatten       bool
	workers       int
	maxIterations int
	format        string
}

// NewMeanCommand creates the mean subcommand.
func NewMeanCommand() *cobra.Command {
	mc := &MeanCommand{}

	cmd := &cobra.Command{
		Use:   "mean [file|-]",
		Short: "Compute the robust mean of an input document",
		Long: `Compute the robust mean of an array read from a JSON or YAML document.

The document is either a bare array of numbers or an object:
  {"shape": [2, 3], "dtype": "float64", "data": [1, 2, 3, 4, 5, 6],
   "where": [true, true, false, true, true, true]}
Complex input carries the imaginary parts in "imag". Files ending in .lz4
are decompressed first. Without a file, or with "-", stdin is read.

Examples:
  submean mean data.json --axis 1 --delta 0.001
  submean mean --flatten --format json < samples.json
  submean mean cube.yaml.lz4 --axis 0 --axis -1 --keepdims`,
		Args: cobra.MaximumNArgs(1),
		RunE: mc.run,
	}

	cmd.Flags().Float64Var(&mc.delta, "delta", 0,
		"Failure probability δ in (0, 1) (default from config: 0.01, or 0.05 with --flatten)")
	cmd.Flags().IntSliceVar(&mc.axes, "axis", nil, "Axis to reduce; repeatable, negative counts from the end (default: all)")
	cmd.Flags().BoolVar(&mc.keepDims, "keepdims", false, "Keep reduced axes with length 1")
	cmd.Flags().StringVar(&mc.dtypeName, "dtype", "", "Result element type (e.g. float32, int64, complex128)")
	cmd.Flags().BoolVar(&mc.flatten, "flatten", false, "Reduce all elements to a scalar")
	cmd.Flags().IntVar(&mc.workers, "workers", 0, "Parallel group workers (0 = config, then CPU count)")
	cmd.Flags().IntVar(&mc.maxIterations, "max-iterations", 0, "Refinement iterations per group (0 = config)")
	cmd.Flags().StringVarP(&mc.format, "format", "f", FormatTable, "Output format: table, json, yaml")

	return cmd
}

func (mc *MeanCommand) run(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	providers, err := initTelemetry(cmd, cfg)
	if err != nil {
		return err
	}

	defer shutdownTelemetry(providers, &err)

	ctx, span := providers.Tracer.Start(cmd.Context(), "submean.mean")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	name := stdinName
	if len(args) > 0 {
		name = args[0]
	}

	doc, err := readInput(cmd, name)
	if err != nil {
		return err
	}

	x, err := doc.Array()
	if err != nil {
		return err
	}

	mask, err := doc.Mask()
	if err != nil {
		return err
	}

	delta := mc.resolveDelta(cmd, cfg)

	var diag robustmean.Diagnostics

	opts := []robustmean.Option{
		robustmean.WithDelta(delta),
		robustmean.WithWhere(mask),
		robustmean.WithWorkers(cfg.Estimator.Workers),
		robustmean.WithMaxIterations(cfg.Estimator.MaxIterations),
		robustmean.WithLogger(providers.Logger),
		robustmean.WithMetrics(providers.Metrics),
		robustmean.WithTracer(providers.Tracer),
		robustmean.WithContext(ctx),
		robustmean.WithDiagnostics(&diag),
	}

	extra, err := mc.flagOptions(cmd)
	if err != nil {
		return err
	}

	opts = append(opts, extra...)

	span.SetAttributes(
		attribute.String("submean.input", name),
		attribute.String("submean.array", x.String()),
	)

	reduce := robustmean.Mean
	if mc.flatten {
		reduce = robustmean.MeanFlattened
	}

	out, err := reduce(x, opts...)
	if err != nil {
		return fmt.Errorf("robust mean of %s: %w", name, err)
	}

	res, err := NewResult(out, delta, diag)
	if err != nil {
		return err
	}

	warnNonConverged(cmd.ErrOrStderr(), res)

	providers.Logger.InfoContext(ctx, "mean computed",
		"input", name,
		"result", out.String(),
		"groups", diag.Groups,
		"elements", diag.Elements,
		"nonconverged", diag.NonConverged,
		"duration", diag.Duration,
	)

	return Render(cmd.OutOrStdout(), res, mc.format)
}

func (mc *MeanCommand) resolveDelta(cmd *cobra.Command, cfg *config.Config) float64 {
	if cmd.Flags().Changed("delta") {
		return mc.delta
	}

	if mc.flatten {
		return cfg.Estimator.FlattenedDelta
	}

	return cfg.Estimator.Delta
}

// flagOptions maps explicitly given flags to options. They follow the config
// defaults so they override them; MeanFlattened rejects --axis and a true
// --keepdims. A false --keepdims is the default and adds no option.
func (mc *MeanCommand) flagOptions(cmd *cobra.Command) ([]robustmean.Option, error) {
	var opts []robustmean.Option

	if cmd.Flags().Changed("workers") {
		opts = append(opts, robustmean.WithWorkers(mc.workers))
	}

	if cmd.Flags().Changed("max-iterations") {
		opts = append(opts, robustmean.WithMaxIterations(mc.maxIterations))
	}

	if cmd.Flags().Changed("axis") {
		opts = append(opts, robustmean.WithAxis(mc.axes...))
	}

	if mc.keepDims {
		opts = append(opts, robustmean.WithKeepDims(true))
	}

	if mc.dtypeName != "" {
		dt, err := dtype.Parse(mc.dtypeName)
		if err != nil {
			return nil, err
		}

		opts = append(opts, robustmean.WithDType(dt))
	}

	return opts, nil
}

func readInput(cmd *cobra.Command, name string) (*Document, error) {
	if name == stdinName {
		return ReadDocument(cmd.InOrStdin(), name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	defer f.Close()

	return ReadDocument(f, name)
}
