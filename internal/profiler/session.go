// Package profiler measures exclusive cycle counts of named code regions.
//
// A Session owns one Aggregator and any number of Threads, each with its own
// CallStack. When a region ends, its duration is added to the recorded start
// of every enclosing frame, so every frame's end-start is its exclusive time.
// Results are merged by region name, which folds recursion and repeated calls
// into one entry.
//
//	s := profiler.NewSession(clk)
//	s.Start()
//	func() {
//		defer s.Main().Begin("work").End()
//		...
//	}()
//	totals := s.Stop()
package profiler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cycleprof/internal/clock"
)

// ErrSessionClosed is the panic value raised when a closed session is used.
var ErrSessionClosed = errors.New("profiling session closed")

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Sessions are silent by default.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithFrequency fixes the cycle frequency used for reporting, typically the
// result of clock.EstimateFrequency. Without it, Stop derives the frequency
// from the root window itself.
func WithFrequency(hz uint64) Option {
	return func(s *Session) {
		s.frequency = hz
	}
}

// Session is one bracketed profiling run.
type Session struct {
	id        uuid.UUID
	clock     clock.Clock
	agg       *Aggregator
	main      *Thread
	logger    zerolog.Logger
	frequency uint64

	maxDepth atomic.Int64
	closed   atomic.Bool

	mu        sync.Mutex
	started   bool
	stopped   bool
	rootStart uint64
	refStart  uint64
	totals    Totals
}

// NewSession returns a session measuring with c.
func NewSession(c clock.Clock, opts ...Option) *Session {
	s := &Session{
		id:     uuid.New(),
		clock:  c,
		agg:    NewAggregator(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session", s.id.String()).Logger()
	s.main = s.NewThread()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Clock returns the clock the session measures with.
func (s *Session) Clock() clock.Clock {
	return s.clock
}

// Aggregator returns the session aggregate.
func (s *Session) Aggregator() *Aggregator {
	return s.agg
}

// Main returns the thread created with the session.
func (s *Session) Main() *Thread {
	return s.main
}

// NewThread returns a thread with its own call stack that merges into this
// session's aggregate. Use one per goroutine.
func (s *Session) NewThread() *Thread {
	return &Thread{session: s}
}

// Begin opens region name on the main thread.
func (s *Session) Begin(name string) *Region {
	return s.main.Begin(name)
}

// Start opens the root window.
func (s *Session) Start() *Session {
	s.checkOpen()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true
	s.stopped = false
	s.refStart = s.clock.ReferenceTicks()
	s.rootStart = s.clock.Cycles()
	s.logger.Debug().Uint64("cycle_start", s.rootStart).Msg("session started")
	return s
}

// Stop closes the root window and returns its totals. Stop panics with
// ErrUnbalancedRegion if the main thread still has active regions.
func (s *Session) Stop() Totals {
	s.checkOpen()
	end := s.clock.Cycles()
	refEnd := s.clock.ReferenceTicks()

	if d := s.main.stack.Depth(); d != 0 {
		panic(fmt.Errorf("%w: session stopped with %d active regions", ErrUnbalancedRegion, d))
	}
	return s.closeWindow(end, refEnd)
}

// Halt closes the root window like Stop but tolerates regions still active
// on the main thread. Their frames stay on the stack and contribute nothing
// to the aggregate. Use it to keep the totals of a run that is unwinding
// from a panic.
func (s *Session) Halt() Totals {
	s.checkOpen()
	end := s.clock.Cycles()
	refEnd := s.clock.ReferenceTicks()

	if d := s.main.stack.Depth(); d != 0 {
		s.logger.Warn().Int("active_regions", d).Msg("session halted with active regions")
	}
	return s.closeWindow(end, refEnd)
}

func (s *Session) closeWindow(end, refEnd uint64) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.rootStart, s.refStart = end, refEnd
	}
	t := Totals{
		Cycles:             end - s.rootStart,
		ReferenceTicks:     refEnd - s.refStart,
		ReferenceFrequency: s.clock.ReferenceFrequency(),
		Frequency:          s.frequency,
	}
	if t.Frequency == 0 {
		t.Frequency = clock.FrequencyFrom(t.ReferenceFrequency, t.Cycles, t.ReferenceTicks)
	}
	s.totals = t
	s.stopped = true

	s.logger.Debug().
		Uint64("cycles", t.Cycles).
		Uint64("frequency", t.Frequency).
		Int("regions", s.agg.Len()).
		Msg("session stopped")
	return t
}

// Totals returns the totals of the last Stop.
func (s *Session) Totals() (Totals, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals, s.stopped
}

// Entries returns a snapshot of the aggregate.
func (s *Session) Entries() []Entry {
	return s.agg.Snapshot()
}

// MaxDepth returns the deepest stack any thread of the session reached.
func (s *Session) MaxDepth() int {
	return int(s.maxDepth.Load())
}

// Close marks the session unusable. Opening or releasing a region, starting
// or stopping afterwards panics with ErrSessionClosed. Totals and entries
// recorded before Close stay readable.
func (s *Session) Close() {
	s.closed.Store(true)
}

func (s *Session) checkOpen() {
	if s.closed.Load() {
		panic(ErrSessionClosed)
	}
}

func (s *Session) observeDepth(depth int) {
	d := int64(depth)
	for {
		cur := s.maxDepth.Load()
		if d <= cur || s.maxDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

// Thread is one call stack of a session. It must only be used from one
// goroutine at a time.
type Thread struct {
	session *Session
	stack   CallStack
}

// Session returns the owning session.
func (t *Thread) Session() *Session {
	return t.session
}

// Depth returns the number of active regions on this thread.
func (t *Thread) Depth() int {
	return t.stack.Depth()
}

// Begin opens region name. The returned guard must be released with End.
func (t *Thread) Begin(name string) *Region {
	t.session.checkOpen()

	depth := t.stack.Push(name, t.session.clock.Cycles())
	t.session.observeDepth(depth)
	return &Region{thread: t, name: name, depth: depth}
}
