//go:build linux

package affinity

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxCPU is the number of CPUs a unix.CPUSet can address.
const maxCPU = int(unsafe.Sizeof(unix.CPUSet{})) * 8

// Bind pins the calling thread to cpu via sched_setaffinity(2).
func (SchedBinder) Bind(cpu int) error {
	if cpu < 0 || cpu >= maxCPU {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidCPU, cpu, maxCPU)
	}

	var set unix.CPUSet
	set.Set(cpu)

	if err := unix.SchedSetaffinity(unix.Gettid(), &set); err != nil {
		return fmt.Errorf("sched_setaffinity cpu %d: %w", cpu, err)
	}

	return nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(unix.Gettid(), &set); err != nil {
		return nil, fmt.Errorf("sched_getaffinity: %w", err)
	}

	cpus := make([]int, 0, set.Count())
	for cpu := 0; cpu < maxCPU && len(cpus) < cap(cpus); cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}

	return cpus, nil
}
