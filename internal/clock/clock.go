// Package clock supplies the time sources the profiler measures with: a
// free-running cycle counter and an OS reference timer of known frequency.
package clock

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultCalibrationMS is the busy-wait window used to estimate the cycle
// counter frequency when none is configured.
const DefaultCalibrationMS = 1000

// ErrClockUnavailable is returned when the host cannot supply a cycle counter
// or a reference timer.
var ErrClockUnavailable = errors.New("clock unavailable")

// Clock is the set of readings the profiler needs.
type Clock interface {
	// Cycles returns the current cycle counter value. Monotonic.
	Cycles() uint64
	// ReferenceTicks returns the current reference timer value.
	ReferenceTicks() uint64
	// ReferenceFrequency returns the reference timer rate in ticks per second.
	ReferenceFrequency() uint64
}

// Hardware reads the CPU cycle counter and the OS monotonic clock.
type Hardware struct {
	source string
}

// New checks both time sources and returns a Hardware clock. It fails with
// ErrClockUnavailable if either cannot be read.
func New() (*Hardware, error) {
	if _, err := readReference(); err != nil {
		return nil, fmt.Errorf("%w: reference timer: %v", ErrClockUnavailable, err)
	}
	if !cyclesSupported() {
		return nil, fmt.Errorf("%w: no cycle counter on this platform", ErrClockUnavailable)
	}
	return &Hardware{source: cycleSourceName}, nil
}

// Cycles implements Clock.
func (h *Hardware) Cycles() uint64 {
	return readCycles()
}

// ReferenceTicks implements Clock. A read failure after New succeeded is a
// host defect and panics.
func (h *Hardware) ReferenceTicks() uint64 {
	t, err := readReference()
	if err != nil {
		panic(fmt.Errorf("%w: %v", ErrClockUnavailable, err))
	}
	return t
}

// ReferenceFrequency implements Clock.
func (h *Hardware) ReferenceFrequency() uint64 {
	return referenceFrequency
}

// Source names the cycle counter in use, e.g. "rdtsc".
func (h *Hardware) Source() string {
	return h.source
}

// Calibration is the raw outcome of one EstimateFrequency window.
type Calibration struct {
	ReferenceFrequency uint64
	ReferenceStart     uint64
	ReferenceEnd       uint64
	CycleStart         uint64
	CycleEnd           uint64
	Frequency          uint64
}

// ReferenceElapsed returns the number of reference ticks the window spanned.
func (c Calibration) ReferenceElapsed() uint64 {
	return c.ReferenceEnd - c.ReferenceStart
}

// CycleElapsed returns the number of cycles the window spanned.
func (c Calibration) CycleElapsed() uint64 {
	return c.CycleEnd - c.CycleStart
}

// Calibrate busy-waits until the reference timer has advanced by windowMS
// milliseconds and relates the cycle delta to the reference delta.
func Calibrate(c Clock, windowMS uint64) Calibration {
	refFreq := c.ReferenceFrequency()
	wait := refFreq * windowMS / 1000

	cal := Calibration{ReferenceFrequency: refFreq}
	cal.CycleStart = c.Cycles()
	cal.ReferenceStart = c.ReferenceTicks()
	cal.ReferenceEnd = cal.ReferenceStart

	for cal.ReferenceEnd-cal.ReferenceStart < wait {
		cal.ReferenceEnd = c.ReferenceTicks()
	}

	cal.CycleEnd = c.Cycles()
	cal.Frequency = FrequencyFrom(refFreq, cal.CycleElapsed(), cal.ReferenceElapsed())
	return cal
}

// EstimateFrequency returns the estimated cycle counter frequency in Hz,
// measured over a window of windowMS milliseconds.
func EstimateFrequency(c Clock, windowMS uint64) uint64 {
	return Calibrate(c, windowMS).Frequency
}

// FrequencyFrom converts a cycle delta observed over refElapsed reference
// ticks into cycles per second. Zero refElapsed yields zero.
func FrequencyFrom(refFreq, cycles, refElapsed uint64) uint64 {
	if refElapsed == 0 {
		return 0
	}
	// float math keeps refFreq*cycles from overflowing on long windows
	return uint64(float64(refFreq) * float64(cycles) / float64(refElapsed))
}

// String reports the calibration the way the frequency guessing tool prints it.
func (c Calibration) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "OS Freq: %d (reported)\n", c.ReferenceFrequency)
	fmt.Fprintf(&sb, "OS Timer: %d -> %d = %d\n", c.ReferenceStart, c.ReferenceEnd, c.ReferenceElapsed())
	if c.ReferenceFrequency > 0 {
		fmt.Fprintf(&sb, "OS Seconds: %v\n", float64(c.ReferenceElapsed())/float64(c.ReferenceFrequency))
	}
	fmt.Fprintf(&sb, "CPU Timer: %d -> %d = %d\n", c.CycleStart, c.CycleEnd, c.CycleElapsed())
	fmt.Fprintf(&sb, "CPU Freq: %d (guessed)\n", c.Frequency)
	return sb.String()
}
