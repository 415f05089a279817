//go:build amd64

package clock

const cycleSourceName = "rdtsc"

// rdtsc reads the Time Stamp Counter. Implemented in cycles_amd64.s.
func rdtsc() uint64

func readCycles() uint64 {
	return rdtsc()
}

func cyclesSupported() bool {
	return true
}
