//go:build linux

package affinity

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// pinPlatform narrows the affinity mask of the calling thread to one of the CPUs
// it is currently allowed on. pid 0 addresses the calling thread.
func pinPlatform(index int) (int, func() error, error) {
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return -1, nil, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}

	allowed := prev.Count()
	if allowed == 0 {
		return -1, nil, errors.New("affinity: empty cpu mask")
	}
	cpu := nthCPU(&prev, index%allowed)

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return -1, nil, fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpu, err)
	}

	restore := func() error {
		if err := unix.SchedSetaffinity(0, &prev); err != nil {
			return fmt.Errorf("affinity: restore cpu mask: %w", err)
		}
		return nil
	}

	return cpu, restore, nil
}

// nthCPU returns the k-th CPU present in set. k must be below set.Count().
func nthCPU(set *unix.CPUSet, k int) int {
	for cpu := 0; ; cpu++ {
		if !set.IsSet(cpu) {
			continue
		}
		if k == 0 {
			return cpu
		}
		k--
	}
}

func threadID() int {
	return unix.Gettid()
}
