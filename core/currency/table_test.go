package currency

import (
	"math"
	"sync"
	"testing"
)

func TestRateTableApply(t *testing.T) {
	table := NewRateTable()
	if !math.IsNaN(table.Multiplier("USD")) {
		t.Fatal("new table must leave every code unresolved")
	}

	n := table.Apply(map[string]float64{
		"USD": 0.92,
		"JPY": 0.0059,
		"BAD": 0,
		"NEG": -1,
		"NAN": math.NaN(),
		"INF": math.Inf(1),
	})
	if n != 2 {
		t.Errorf("expected 2 applied, got %d", n)
	}
	for _, code := range []string{"BAD", "NEG", "NAN", "INF"} {
		if !math.IsNaN(table.Multiplier(code)) {
			t.Errorf("%s must stay unresolved", code)
		}
	}

	before := table.Multipliers()
	table.Apply(map[string]float64{"USD": 0.95})
	if before["USD"] != 0.92 {
		t.Error("published snapshot must not change after a later apply")
	}
	if table.Multiplier("USD") != 0.95 {
		t.Errorf("expected updated USD, got %v", table.Multiplier("USD"))
	}
	if table.Multiplier("JPY") != 0.0059 {
		t.Error("codes absent from an update keep their previous multiplier")
	}
}

func TestRateTableConcurrentReaders(t *testing.T) {
	table := NewRateTable()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= 200; i++ {
				m := float64(w*1000 + i)
				table.Apply(map[string]float64{"A": m, "B": m})
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := table.Multipliers()
				a, okA := snap["A"]
				b, okB := snap["B"]
				if okA != okB || a != b {
					t.Errorf("torn snapshot: A=%v B=%v", a, b)
					return
				}
			}
		}()
	}
	wg.Wait()
}
