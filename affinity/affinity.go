// Package affinity pins the calling OS thread to a single CPU core.
//
// Callers must lock their goroutine to its thread with runtime.LockOSThread
// before calling Bind, otherwise the Go scheduler is free to move the
// goroutine off the pinned thread.
package affinity

import "errors"

var (
	// ErrInvalidCPU is returned for a CPU index the binder cannot address.
	ErrInvalidCPU = errors.New("invalid cpu index")
	// ErrUnsupported is returned on platforms without thread affinity.
	ErrUnsupported = errors.New("cpu affinity not supported on this platform")
)

// Binder restricts the calling thread to one CPU.
type Binder interface {
	Bind(cpu int) error
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(cpu int) error

// Bind calls f(cpu).
func (f BinderFunc) Bind(cpu int) error {
	return f(cpu)
}

// SchedBinder binds threads with the operating system scheduler.
type SchedBinder struct{}

var _ Binder = SchedBinder{}
