package profiler

// Frame represents one active region on a CallStack
type Frame struct {
	Name string
	// Start is advanced by the duration of every completed descendant, so
	// end-Start is always the frame's exclusive time so far.
	Start uint64
}

// Entry represents the aggregate for one region name
type Entry struct {
	Name   string
	Count  uint64 // Number of completed invocations
	Cycles uint64 // Exclusive cycles summed over all invocations
}

// Totals holds the root measurement window of a session
type Totals struct {
	Cycles             uint64 // Root window length in cycles
	ReferenceTicks     uint64 // Root window length in reference timer ticks
	ReferenceFrequency uint64 // Reference ticks per second
	Frequency          uint64 // Estimated cycles per second
}

// ElapsedMS returns the root window length in milliseconds, derived from the
// cycle count and the estimated frequency. Without a frequency it falls back
// to the reference timer.
func (t Totals) ElapsedMS() float64 {
	if t.Frequency > 0 {
		return float64(t.Cycles) / float64(t.Frequency) * 1000.0
	}
	if t.ReferenceFrequency > 0 {
		return float64(t.ReferenceTicks) / float64(t.ReferenceFrequency) * 1000.0
	}
	return 0
}
