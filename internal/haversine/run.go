package haversine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"cycleprof/internal/profiler"
)

// ErrNoPairs is returned when the input holds no pairs to average.
var ErrNoPairs = errors.New("input contains no pairs")

// RunOptions configures Run
type RunOptions struct {
	JSONPath   string
	AnswerPath string // Optional answers file to validate against
	Workers    int    // Goroutines summing distances; <= 1 sums inline
}

// Result is the outcome of one Run
type Result struct {
	InputSize     int
	PairCount     int
	Mean          float64
	HasReference  bool
	ReferenceMean float64
}

// Difference returns Mean minus the reference mean.
func (r Result) Difference() float64 {
	return r.Mean - r.ReferenceMean
}

// String formats the result and, when present, the validation against the
// reference mean.
func (r Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "RESULTS\ninput size: %d\nPair count: %d\nHaversine mean: %v\n", r.InputSize, r.PairCount, r.Mean)
	if r.HasReference {
		fmt.Fprintf(&sb, "\nVALIDATION\nReference mean: %v\nDifference: %v\n", r.ReferenceMean, r.Difference())
	}
	return sb.String()
}

// Run reads, parses and averages the pairs in opts.JSONPath, measuring each
// phase as a region on th. Worker goroutines get their own threads of the
// same session.
func Run(ctx context.Context, th *profiler.Thread, opts RunOptions) (Result, error) {
	var res Result

	data, err := profiler.Timed(th, "read", func() ([]byte, error) {
		return os.ReadFile(opts.JSONPath)
	})
	if err != nil {
		return res, fmt.Errorf("failed to read input: %w", err)
	}
	res.InputSize = len(data)

	pairs, err := profiler.Timed(th, "parse", func() ([]Pair, error) {
		return ParsePairs(data)
	})
	if err != nil {
		return res, fmt.Errorf("failed to parse input: %w", err)
	}
	if len(pairs) == 0 {
		return res, ErrNoPairs
	}
	res.PairCount = len(pairs)

	sum, err := profiler.Timed(th, "sum", func() (float64, error) {
		return sumDistances(ctx, th.Session(), pairs, opts.Workers)
	})
	if err != nil {
		return res, err
	}
	res.Mean = sum / float64(len(pairs))

	if opts.AnswerPath != "" {
		err := th.Measure("validate", func() error {
			f, err := os.Open(opts.AnswerPath)
			if err != nil {
				return err
			}
			defer f.Close()

			res.ReferenceMean, err = ReadReferenceMean(f, len(pairs))
			return err
		})
		if err != nil {
			return res, fmt.Errorf("failed to read answers: %w", err)
		}
		res.HasReference = true
	}

	return res, nil
}

// sumDistances splits pairs into one contiguous chunk per worker and adds
// the partial sums in chunk order, so the result only depends on workers.
func sumDistances(ctx context.Context, s *profiler.Session, pairs []Pair, workers int) (float64, error) {
	if workers <= 1 {
		return sumChunk(pairs), nil
	}
	workers = min(workers, len(pairs))

	partial := make([]float64, workers)
	chunk := (len(pairs) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(pairs))
		if lo >= hi {
			continue
		}
		th := s.NewThread()
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer th.Begin("sum_chunk").End()
			partial[w] = sumChunk(pairs[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var sum float64
	for _, p := range partial {
		sum += p
	}
	return sum, nil
}

func sumChunk(pairs []Pair) float64 {
	var sum float64
	for _, p := range pairs {
		sum += p.Distance()
	}
	return sum
}
