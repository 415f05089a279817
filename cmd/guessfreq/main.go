// Command guessfreq estimates the CPU cycle counter frequency by busy-waiting
// against the OS reference timer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cycleprof/internal/clock"
	"cycleprof/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var msToWait uint64

	cmd := &cobra.Command{
		Use:          "guessfreq",
		Short:        "Guess the cycle counter frequency",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.Stderr("info", "guessfreq")
			if err != nil {
				return err
			}

			clk, err := clock.New()
			if err != nil {
				logger.Fatal().Err(err).Msg("cannot measure on this host")
			}
			logger.Debug().Str("cycle_source", clk.Source()).Uint64("window_ms", msToWait).Msg("calibrating")

			fmt.Fprint(cmd.OutOrStdout(), clock.Calibrate(clk, msToWait).String())
			return nil
		},
	}

	cmd.Flags().Uint64VarP(&msToWait, "ms-to-wait", "m", clock.DefaultCalibrationMS, "calibration window in milliseconds")
	return cmd
}
