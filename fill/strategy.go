package fill

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a worker writes into the shared buffer.
type Strategy int

const (
	// Naive increments slots with plain, unsynchronized writes.
	Naive Strategy = iota
	// Atomic increments slots with a hardware atomic add.
	Atomic
	// CASSafe increments slots with a compare-and-swap retry loop and
	// counts failed compares as collisions.
	CASSafe
)

var strategyNames = [...]string{
	Naive:   "naive",
	Atomic:  "atomic",
	CASSafe: "cassafe",
}

// Strategies returns every known strategy.
func Strategies() []Strategy {
	return []Strategy{Naive, Atomic, CASSafe}
}

// DefaultStrategies is the strategy set compared when none is configured.
func DefaultStrategies() []Strategy {
	return []Strategy{Naive, Atomic}
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}

	return strategyNames[s]
}

// CountsCollisions reports whether the strategy produces a collision count.
func (s Strategy) CountsCollisions() bool {
	return s == CASSafe
}

// Run invokes the engine entry point matching s once and returns the elapsed
// time of the write loop together with the collision count.
func (s Strategy) Run(
	e Engine,
	buf []int64,
	trials, cardinality int64,
) (time.Duration, int64) {
	switch s {
	case Naive:
		return e.Naive(buf, trials, cardinality), 0
	case Atomic:
		return e.Atomic(buf, trials, cardinality), 0
	case CASSafe:
		var collisions int64
		elapsed := e.CASSafe(buf, trials, cardinality, &collisions)

		return elapsed, collisions
	default:
		panic(fmt.Sprintf("fill: unknown %v", s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(strategyNames) {
		return nil, fmt.Errorf("unknown %v", s)
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseStrategy resolves a strategy by name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}

	return 0, fmt.Errorf("unknown strategy %q (want one of %s)",
		name, strings.Join(strategyNames[:], ", "))
}

// ParseStrategies resolves a list of names, rejecting duplicates.
func ParseStrategies(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	seen := make(map[Strategy]bool, len(names))

	for _, name := range names {
		s, err := ParseStrategy(name)
		if err != nil {
			return nil, err
		}

		if seen[s] {
			return nil, fmt.Errorf("strategy %q listed twice", s)
		}

		seen[s] = true
		out = append(out, s)
	}

	return out, nil
}
