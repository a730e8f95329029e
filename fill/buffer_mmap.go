//go:build linux || darwin || freebsd

package fill

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// allocate maps anonymous private memory. A mapping the kernel refuses
// (RLIMIT_AS, strict overcommit) is returned as an error; under the default
// Linux overcommit policy pages are committed on first touch, so a shortfall
// there shows up later as an OOM kill rather than here. Pages are zero-filled
// by the kernel and page-aligned, which keeps every slot aligned for 64-bit
// atomics.
func allocate(size int) ([]int64, func() error, error) {
	data, err := unix.Mmap(
		-1, 0, size*8,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, nil, err
	}

	slots := unsafe.Slice((*int64)(unsafe.Pointer(unsafe.SliceData(data))), size)

	return slots, func() error { return unix.Munmap(data) }, nil
}
