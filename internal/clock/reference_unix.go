//go:build linux || darwin || freebsd || netbsd || openbsd

package clock

import "golang.org/x/sys/unix"

const referenceFrequency = 1_000_000_000

func readReference() (uint64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, err
	}
	return uint64(ts.Nano()), nil
}
