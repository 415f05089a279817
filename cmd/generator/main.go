// Command generator writes random coordinate pairs and their reference
// haversine distances for the haversine command to profile against.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cycleprof/internal/haversine"
	"cycleprof/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		seed   uint64
		method string
		number int
		outDir string
	)

	cmd := &cobra.Command{
		Use:          "generator",
		Short:        "Generate haversine input pairs and reference answers",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.Stderr("info", "generator")
			if err != nil {
				return err
			}

			m, err := haversine.ParseMethod(method)
			if err != nil {
				return err
			}
			if number < 1 {
				return fmt.Errorf("number must be at least 1, got %d", number)
			}

			ds, err := haversine.WriteDataset(outDir, m, seed, number)
			if err != nil {
				return err
			}
			logger.Debug().Str("input", ds.JSONPath).Str("answers", ds.AnswerPath).Msg("dataset written")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Method: %s\n", m)
			fmt.Fprintf(out, "Seed: %d\n", seed)
			fmt.Fprintf(out, "Pair count: %d\n", ds.PairCount)
			fmt.Fprintf(out, "Expected mean: %v\n", ds.Mean)
			return nil
		},
	}

	f := cmd.Flags()
	f.Uint64VarP(&seed, "seed", "s", 1, "random seed")
	f.StringVarP(&method, "type", "t", string(haversine.Cluster), "point distribution: uniform or cluster")
	f.IntVarP(&number, "number", "n", 0, "number of pairs")
	f.StringVarP(&outDir, "out", "o", ".", "output directory")
	_ = cmd.MarkFlagRequired("number")

	return cmd
}
