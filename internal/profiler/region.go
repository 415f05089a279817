package profiler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbalancedRegion is the panic value raised when a region is released
	// while other regions opened after it are still active.
	ErrUnbalancedRegion = errors.New("region released out of order")
	// ErrRegionReleased is the panic value raised on a second release.
	ErrRegionReleased = errors.New("region already released")
)

// Region is the guard for one activation of a named region. Release it with
// End on every exit path, normally via defer:
//
//	defer thread.Begin("parse").End()
//
// A nil *Region is a valid no-op guard.
type Region struct {
	thread   *Thread
	name     string
	depth    int
	released bool
}

// Name returns the region name.
func (r *Region) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// End closes the region: it pops the region's frame, moving every enclosing
// frame's start past it, and merges the exclusive cycles into the session
// aggregate. End panics with ErrSessionClosed once the session is closed.
func (r *Region) End() {
	if r == nil || r.thread == nil {
		return
	}
	r.thread.session.checkOpen()
	end := r.thread.session.clock.Cycles()

	if r.released {
		panic(fmt.Errorf("%w: %q", ErrRegionReleased, r.name))
	}
	r.released = true

	if d := r.thread.stack.Depth(); d != 0 && d != r.depth {
		panic(fmt.Errorf("%w: %q opened at depth %d, stack depth is %d",
			ErrUnbalancedRegion, r.name, r.depth, d))
	}

	name, cycles := r.thread.stack.Pop(end)
	r.thread.session.agg.Merge(name, cycles)
}

// Measure runs fn inside the region name. The region is released however fn
// exits, including by panic.
func (t *Thread) Measure(name string, fn func() error) error {
	defer t.Begin(name).End()
	return fn()
}

// Timed runs fn inside the region name and passes its results through.
func Timed[T any](t *Thread, name string, fn func() (T, error)) (T, error) {
	defer t.Begin(name).End()
	return fn()
}
