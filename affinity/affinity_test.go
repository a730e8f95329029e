package affinity

import (
	"errors"
	"runtime"
	"testing"
)

func TestBinderFunc(t *testing.T) {
	var got []int
	b := BinderFunc(func(cpu int) error {
		got = append(got, cpu)

		return nil
	})

	for _, cpu := range []int{3, 1} {
		if err := b.Bind(cpu); err != nil {
			t.Fatalf("Bind(%d) failed: %v", cpu, err)
		}
	}

	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Errorf("bound %v, want [3 1]", got)
	}
}

func TestSchedBinderRejectsNegative(t *testing.T) {
	err := SchedBinder{}.Bind(-1)
	if err == nil {
		t.Fatal("expected error for cpu -1")
	}

	if runtime.GOOS == "linux" && !errors.Is(err, ErrInvalidCPU) {
		t.Errorf("err = %v, want ErrInvalidCPU", err)
	}
}

func TestSchedBinderPinsToAllowedCPU(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("thread affinity is linux-only")
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	allowed, err := Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(allowed) == 0 {
		t.Fatal("no cpus in affinity mask")
	}

	// The thread is left pinned; restore the previous mask on the way out so
	// the locked thread can be reused once the test exits.
	defer restore(t, allowed)

	target := allowed[len(allowed)-1]
	if err := (SchedBinder{}).Bind(target); err != nil {
		t.Fatalf("Bind(%d) failed: %v", target, err)
	}

	now, err := Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(now) != 1 || now[0] != target {
		t.Errorf("affinity = %v, want [%d]", now, target)
	}
}
