//go:build !amd64

package clock

import "time"

// Without a portable user-space cycle counter, count nanoseconds of the
// runtime's monotonic clock instead.
const cycleSourceName = "monotonic"

var cycleEpoch = time.Now()

func readCycles() uint64 {
	return uint64(time.Since(cycleEpoch).Nanoseconds())
}

func cyclesSupported() bool {
	return true
}
