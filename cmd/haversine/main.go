// Command haversine averages the haversine distances of a pairs file while
// profiling itself, then prints the result and the cycle cost of each phase.
//
// Usage:
//
//	haversine --json haversine_1000_input.json --answer haversine_1000_data.f64
//	haversine -j input.json -m 250 --workers 4 --metrics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cycleprof/internal/analyzer"
	"cycleprof/internal/clock"
	"cycleprof/internal/config"
	"cycleprof/internal/haversine"
	"cycleprof/internal/logging"
	"cycleprof/internal/metrics"
)

type options struct {
	configPath  string
	jsonPath    string
	answerPath  string
	calibrateMS uint64
	workers     int
	topN        int
	logLevel    string
	metrics     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "haversine",
		Short:        "Average haversine distances of a pairs file and report where the cycles went",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.jsonPath, "json", "j", "", "input pairs JSON file")
	f.StringVarP(&opts.answerPath, "answer", "a", "", "answers .f64 file to validate against")
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	f.Uint64VarP(&opts.calibrateMS, "ms-to-wait", "m", clock.DefaultCalibrationMS, "cycle frequency calibration window in ms (0 derives it from the run)")
	f.IntVarP(&opts.workers, "workers", "w", 1, "goroutines summing distances")
	f.IntVarP(&opts.topN, "top", "n", 0, "report only the N most expensive regions (0 = all)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVar(&opts.metrics, "metrics", false, "also print region metrics in the Prometheus text format")
	_ = cmd.MarkFlagRequired("json")

	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("ms-to-wait") {
		cfg.CalibrateMS = opts.calibrateMS
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("top") {
		cfg.TopN = opts.topN
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Stderr(cfg.LogLevel, "haversine")
	if err != nil {
		return err
	}

	clk, err := clock.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot measure on this host")
	}

	s, res, err := haversine.Profile(cmd.Context(), clk, haversine.ProfileOptions{
		RunOptions: haversine.RunOptions{
			JSONPath:   opts.jsonPath,
			AnswerPath: opts.answerPath,
			Workers:    cfg.Workers,
		},
		CalibrateMS: cfg.CalibrateMS,
		Logger:      logger,
	})
	if err != nil {
		logger.Error().Err(err).Str("session", s.ID().String()).Msg("profiling run failed")
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.String())

	report, err := analyzer.ReportFor(s)
	if err != nil {
		return err
	}
	if cfg.TopN > 0 && cfg.TopN < len(report.Lines) {
		report.Lines = report.Lines[:cfg.TopN]
	}
	if _, err := report.WriteTo(out); err != nil {
		return err
	}

	if opts.metrics {
		fmt.Fprintln(out)
		return metrics.Export(out, s, "cycleprof")
	}
	return nil
}
