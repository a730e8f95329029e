package fill

import (
	"errors"
	"fmt"
	"math"
)

// SlotsPerGiB is the number of int64 slots requested per gigabyte argument.
const SlotsPerGiB = 1 << 27

// ErrInvalidParams is returned when invocation parameters cannot describe a
// runnable experiment.
var ErrInvalidParams = errors.New("invalid parameters")

// Params holds the derived sizes for one experiment. They are computed once
// at startup and stay constant for the whole run.
type Params struct {
	Gigabytes   float64
	Size        int64
	Trials      int64
	Shift       uint
	Cardinality int64
}

// NewParams derives buffer size, per-worker trial count and cardinality from
// the invocation arguments. Trials is truncated toward zero.
func NewParams(gigabytes, trials float64, shift int) (Params, error) {
	if math.IsNaN(gigabytes) || math.IsInf(gigabytes, 0) || gigabytes <= 0 {
		return Params{}, fmt.Errorf("%w: gigabytes must be positive, got %v",
			ErrInvalidParams, gigabytes)
	}

	if math.IsNaN(trials) || trials < 1 || trials >= math.MaxInt64 {
		return Params{}, fmt.Errorf("%w: trials must be at least 1, got %v",
			ErrInvalidParams, trials)
	}

	if shift < 0 || shift > 63 {
		return Params{}, fmt.Errorf("%w: shift must be in [0, 63], got %d",
			ErrInvalidParams, shift)
	}

	slots := gigabytes * SlotsPerGiB
	if slots >= math.MaxInt64/8 {
		return Params{}, fmt.Errorf("%w: %v gigabytes is too large",
			ErrInvalidParams, gigabytes)
	}

	p := Params{
		Gigabytes: gigabytes,
		Size:      int64(slots),
		Trials:    int64(trials),
		Shift:     uint(shift),
	}

	if p.Size < 1 {
		return Params{}, fmt.Errorf("%w: %v gigabytes is less than one slot",
			ErrInvalidParams, gigabytes)
	}

	p.Cardinality = p.Size >> p.Shift
	if p.Cardinality < 1 {
		return Params{}, fmt.Errorf(
			"%w: shift %d leaves no addressable slots in a buffer of %d",
			ErrInvalidParams, shift, p.Size,
		)
	}

	return p, nil
}

// Bytes returns the buffer size in bytes.
func (p Params) Bytes() int64 {
	return p.Size * 8
}
