package fill

import (
	"errors"
	"fmt"
	"math"
)

// Buffer is the region every worker writes into. It is allocated once and
// shared by all configurations of a run; contents are not reset between
// configurations unless Reset is called.
type Buffer struct {
	slots []int64
	free  func() error
}

// NewBuffer allocates a zeroed buffer of size int64 slots.
func NewBuffer(size int64) (*Buffer, error) {
	if size < 1 || size > math.MaxInt/8 {
		return nil, fmt.Errorf("%w: buffer of %d slots", ErrInvalidParams, size)
	}

	slots, free, err := allocate(int(size))
	if err != nil {
		return nil, fmt.Errorf("allocate %d byte buffer: %w", size*8, err)
	}

	return &Buffer{slots: slots, free: free}, nil
}

// Len returns the number of slots.
func (b *Buffer) Len() int64 {
	return int64(len(b.slots))
}

// Slots returns the backing slice. It stays valid until Close.
func (b *Buffer) Slots() []int64 {
	return b.slots
}

// Reset zeroes every slot. It must not run concurrently with writers.
func (b *Buffer) Reset() {
	clear(b.slots)
}

// Sum returns the total of all slots.
func (b *Buffer) Sum() int64 {
	var total int64
	for _, v := range b.slots {
		total += v
	}

	return total
}

// Close releases the backing memory. The buffer is unusable afterwards.
func (b *Buffer) Close() error {
	if b.free == nil {
		return errors.New("buffer already closed")
	}

	err := b.free()
	b.slots = nil
	b.free = nil

	return err
}
