// Package fill implements the shared write buffer and the engine that hammers
// it with naive, atomic, and compare-and-swap increments.
package fill

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Engine performs trials increments into pseudo-random slots of buf, confined
// to cardinality distinct slots, and returns the time spent in the write loop
// alone. All three entry points draw slots from the same distribution so that
// strategies are comparable.
type Engine interface {
	Naive(buf []int64, trials, cardinality int64) time.Duration
	Atomic(buf []int64, trials, cardinality int64) time.Duration
	CASSafe(buf []int64, trials, cardinality int64, collisions *int64) time.Duration
}

// Native is the in-process Engine.
type Native struct{}

var _ Engine = Native{}

// Naive increments slots without any synchronization. Concurrent callers
// lose updates; that loss is what the strategy measures.
func (Native) Naive(buf []int64, trials, cardinality int64) time.Duration {
	p := newPicker(int64(len(buf)), cardinality)

	start := time.Now()
	for i := int64(0); i < trials; i++ {
		buf[p.next()]++
	}

	return time.Since(start)
}

// Atomic increments slots with atomic.AddInt64.
func (Native) Atomic(buf []int64, trials, cardinality int64) time.Duration {
	p := newPicker(int64(len(buf)), cardinality)

	start := time.Now()
	for i := int64(0); i < trials; i++ {
		atomic.AddInt64(&buf[p.next()], 1)
	}

	return time.Since(start)
}

// CASSafe increments slots with a load / compare-and-swap loop. Every failed
// compare is added to *collisions.
func (Native) CASSafe(
	buf []int64,
	trials, cardinality int64,
	collisions *int64,
) time.Duration {
	p := newPicker(int64(len(buf)), cardinality)

	var failed int64

	start := time.Now()
	for i := int64(0); i < trials; i++ {
		ptr := &buf[p.next()]
		old := atomic.LoadInt64(ptr)
		for !atomic.CompareAndSwapInt64(ptr, old, old+1) {
			old = atomic.LoadInt64(ptr)
			failed++
		}
	}
	elapsed := time.Since(start)

	*collisions += failed

	return elapsed
}

// picker draws slot indices uniformly from [0, cardinality) and spreads them
// across the buffer so the hot slots do not share cache lines.
type picker struct {
	rng         *rand.Rand
	cardinality uint64
	spread      uint
}

func newPicker(size, cardinality int64) *picker {
	if cardinality < 1 || cardinality > size {
		panic(fmt.Sprintf(
			"fill: cardinality %d out of range for buffer of %d slots",
			cardinality, size,
		))
	}

	return &picker{
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		cardinality: uint64(cardinality),
		spread:      uint(bits.Len64(uint64(size/cardinality)) - 1),
	}
}

func (p *picker) next() int64 {
	return int64(p.rng.Uint64N(p.cardinality) << p.spread)
}
