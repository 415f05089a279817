package haversine

import (
	"context"

	"github.com/rs/zerolog"

	"cycleprof/internal/clock"
	"cycleprof/internal/profiler"
)

// ProfileOptions configures Profile
type ProfileOptions struct {
	RunOptions
	// CalibrateMS is the frequency estimation window run before the session
	// starts. 0 skips calibration.
	CalibrateMS uint64
	Logger      zerolog.Logger
}

// Profile calibrates clk, then runs the workload inside a new stopped
// session. The session is returned even when the run fails so that the
// cycles spent up to the failure can still be reported. A panic in the run
// halts the session's root window before it propagates.
func Profile(ctx context.Context, clk clock.Clock, opts ProfileOptions) (*profiler.Session, Result, error) {
	var freq uint64
	if opts.CalibrateMS > 0 {
		freq = clock.EstimateFrequency(clk, opts.CalibrateMS)
		opts.Logger.Info().
			Uint64("window_ms", opts.CalibrateMS).
			Uint64("frequency", freq).
			Msg("cycle counter calibrated")
	}

	s := profiler.NewSession(clk, profiler.WithLogger(opts.Logger), profiler.WithFrequency(freq))

	s.Start()
	res, err := runSession(ctx, s, opts.RunOptions)
	s.Stop()

	return s, res, err
}

func runSession(ctx context.Context, s *profiler.Session, opts RunOptions) (Result, error) {
	defer func() {
		if p := recover(); p != nil {
			s.Halt()
			panic(p)
		}
	}()
	return Run(ctx, s.Main(), opts)
}
