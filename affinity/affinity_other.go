//go:build !linux

package affinity

// Bind always fails: pinning is load-bearing for the measurements, so an
// unpinned run is refused rather than silently accepted.
func (SchedBinder) Bind(cpu int) error {
	return ErrUnsupported
}

// Current is not available without thread affinity.
func Current() ([]int, error) {
	return nil, ErrUnsupported
}
