package fill

import (
	"errors"
	"testing"
)

func TestBufferLifecycle(t *testing.T) {
	b, err := NewBuffer(1 << 16)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if b.Len() != 1<<16 {
		t.Errorf("len = %d, want %d", b.Len(), 1<<16)
	}
	if b.Sum() != 0 {
		t.Errorf("fresh buffer sum = %d, want 0", b.Sum())
	}

	Native{}.Atomic(b.Slots(), 1000, 1<<8)

	if b.Sum() != 1000 {
		t.Errorf("sum = %d, want 1000", b.Sum())
	}

	b.Reset()

	if b.Sum() != 0 {
		t.Errorf("sum after reset = %d, want 0", b.Sum())
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := b.Close(); err == nil {
		t.Error("expected error closing twice")
	}
}

func TestNewBufferRejectsEmpty(t *testing.T) {
	if _, err := NewBuffer(0); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("err = %v, want ErrInvalidParams", err)
	}
}
