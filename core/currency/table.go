package currency

import (
	"math"
	"sync"
	"sync/atomic"
)

// RateTable is the side-table of currency multipliers keyed by code.
// Readers load an immutable snapshot without locking; writers build a new
// map under mu and publish it atomically, so a reader sees either the old
// table or the new one, never a mix.
type RateTable struct {
	mu      sync.Mutex
	current atomic.Pointer[map[string]float64]
}

// NewRateTable returns an empty table: every code is unresolved.
func NewRateTable() *RateTable {
	t := &RateTable{}
	empty := map[string]float64{}
	t.current.Store(&empty)
	return t
}

// Multipliers returns the current snapshot. Callers must not modify it.
func (t *RateTable) Multipliers() map[string]float64 {
	return *t.current.Load()
}

// Multiplier returns the multiplier for code, or NaN when unresolved.
func (t *RateTable) Multiplier(code string) float64 {
	if m, ok := t.Multipliers()[code]; ok {
		return m
	}
	return math.NaN()
}

// Apply merges update into the table and publishes the result. Codes not in
// update keep their previous multiplier. Non-finite or non-positive
// multipliers are ignored. It returns how many codes were written.
func (t *RateTable) Apply(update map[string]float64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := *t.current.Load()
	next := make(map[string]float64, len(prev)+len(update))
	for code, m := range prev {
		next[code] = m
	}

	applied := 0
	for code, m := range update {
		if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
			continue
		}
		next[code] = m
		applied++
	}

	t.current.Store(&next)
	return applied
}
