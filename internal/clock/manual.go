package clock

import "sync/atomic"

// Manual is a deterministic Clock whose readings only move when advanced.
// The reference timer runs at RefFrequency and advances in lockstep with
// cycles at the ratio given by CycleFrequency.
type Manual struct {
	cycles         atomic.Uint64
	CycleFrequency uint64
	RefFrequency   uint64
}

// NewManual returns a Manual clock starting at cycle start. The reference
// timer runs at 1 MHz.
func NewManual(start, cycleFrequency uint64) *Manual {
	m := &Manual{CycleFrequency: cycleFrequency, RefFrequency: 1_000_000}
	m.cycles.Store(start)
	return m
}

// Advance moves the cycle counter forward by n and returns the new value.
func (m *Manual) Advance(n uint64) uint64 {
	return m.cycles.Add(n)
}

// Set moves the cycle counter to v. Moving backwards breaks monotonicity and
// is left to the caller.
func (m *Manual) Set(v uint64) {
	m.cycles.Store(v)
}

// Cycles implements Clock.
func (m *Manual) Cycles() uint64 {
	return m.cycles.Load()
}

// ReferenceTicks implements Clock.
func (m *Manual) ReferenceTicks() uint64 {
	if m.CycleFrequency == 0 {
		return 0
	}
	return uint64(float64(m.cycles.Load()) * float64(m.RefFrequency) / float64(m.CycleFrequency))
}

// ReferenceFrequency implements Clock.
func (m *Manual) ReferenceFrequency() uint64 {
	return m.RefFrequency
}
