//go:build linux || darwin || freebsd

package fill

import (
	"math"
	"testing"
)

func TestNewBufferRefusedMappingIsError(t *testing.T) {
	if math.MaxInt == math.MaxInt32 {
		t.Skip("needs a 64-bit address space")
	}

	// Far beyond any user address space, so the kernel refuses the mapping
	// even with overcommit enabled.
	b, err := NewBuffer(math.MaxInt / 8)
	if err == nil {
		b.Close()
		t.Fatal("expected error for an unmappable buffer")
	}
}
