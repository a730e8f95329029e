package affinity

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func restore(t *testing.T, cpus []int) {
	t.Helper()

	var set unix.CPUSet
	for _, cpu := range cpus {
		set.Set(cpu)
	}

	if err := unix.SchedSetaffinity(unix.Gettid(), &set); err != nil {
		t.Errorf("restore affinity: %v", err)
	}
}

func TestSchedBinderRejectsBeyondSet(t *testing.T) {
	for _, cpu := range []int{maxCPU, maxCPU + 1} {
		err := SchedBinder{}.Bind(cpu)
		if !errors.Is(err, ErrInvalidCPU) {
			t.Errorf("Bind(%d) = %v, want ErrInvalidCPU", cpu, err)
		}
	}
}

func TestMaxCPUCoversKernelDefault(t *testing.T) {
	if maxCPU < 1024 {
		t.Errorf("maxCPU = %d, want at least 1024", maxCPU)
	}
}
