package units

import (
	"math"
	"testing"
)

const relTolerance = 1e-9

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= relTolerance*scale || diff < 1e-12
}

// TestStrategyRoundTrip checks FromDefault(ToDefault(v)) == v for every kind
func TestStrategyRoundTrip(t *testing.T) {
	strategies := []struct {
		name     string
		strategy Strategy
		samples  []float64
	}{
		{"linear", Linear(1000), []float64{-12.5, 0, 0.001, 3.14, 1e12}},
		{"logarithmic", Logarithmic(0.001), []float64{-30, -3, 1, 10, 47.5}},
		{"power law", PowerLaw(0.836, 0), []float64{0, 1, 4, 7.5, 12}},
		{"reciprocal", Reciprocal(235.215), []float64{0.5, 8, 29.401875, 100}},
		{"angular", Angular(), []float64{-math.Pi, 0, 1, 2 * math.Pi}},
		{"affine celsius", Affine(1, 273.15), []float64{-273.15, -40, 0, 36.6, 100}},
		{"affine fahrenheit", Affine(5.0/9, 459.67*5/9), []float64{-459.67, -40, 32, 98.6, 212}},
		{"photon", Photon(1.98644586e-25), []float64{200, 532, 1064, 10600}},
		{"binary", BinaryExponent(20), []float64{0, 1, 1.5, 4096}},
		{"bound dynamic", Dynamic("USD").Bind(1 / 1.0956), []float64{0, 1, 1000, 12345.678}},
	}

	for _, tt := range strategies {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.samples {
				got := tt.strategy.FromDefault(tt.strategy.ToDefault(v))
				if !approxEqual(got, v) {
					t.Errorf("round trip of %v: got %v", v, got)
				}
			}
		})
	}
}

func TestStrategyFormulas(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		in       float64
		toDef    float64
	}{
		{"linear kilometre", Linear(1000), 3.14, 3140},
		{"decibel milliwatt", Logarithmic(0.001), 30, 1},
		{"decibel watt", Logarithmic(1), 10, 10},
		{"beaufort 4", PowerLaw(0.836, 1.5), 4, 0.836 * 8},
		{"mpg us", Reciprocal(235.215), 8, 29.401875},
		{"radian", Angular(), math.Pi, 180},
		{"celsius", Affine(1, 273.15), 100, 373.15},
		{"photon 1000nm", Photon(2e-25), 1000, 2e-19},
		{"kibibyte", BinaryExponent(10), 3, 3072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.strategy.ToDefault(tt.in); !approxEqual(got, tt.toDef) {
				t.Errorf("ToDefault(%v): expected %v, got %v", tt.in, tt.toDef, got)
			}
		})
	}
}

func TestSelfInverseStrategies(t *testing.T) {
	for _, s := range []Strategy{Reciprocal(100), Photon(1.98644586e-25)} {
		for _, v := range []float64{2, 8, 640} {
			if s.ToDefault(v) != s.FromDefault(v) {
				t.Errorf("%s: ToDefault and FromDefault must agree for %v", s.Kind, v)
			}
		}
	}
}

func TestDynamicStrategyResolution(t *testing.T) {
	unbound := Dynamic("JPY")
	if unbound.Resolved() {
		t.Fatal("unbound dynamic strategy must be unresolved")
	}
	if !math.IsNaN(unbound.ToDefault(100)) || !math.IsNaN(unbound.FromDefault(100)) {
		t.Error("unbound dynamic strategy must convert to NaN")
	}
	if !math.IsNaN(unbound.Multiplier) || unbound.Code != "JPY" {
		t.Errorf("unbound dynamic strategy must carry a NaN multiplier, got %+v", unbound)
	}

	if unbound.Bind(math.NaN()).Resolved() {
		t.Error("binding NaN must leave the strategy unresolved")
	}

	bound := unbound.Bind(0.0061)
	if !bound.Resolved() {
		t.Fatal("bound strategy must be resolved")
	}
	if got := bound.ToDefault(1000); !approxEqual(got, 6.1) {
		t.Errorf("expected 6.1, got %v", got)
	}

	if Linear(2).Bind(5) != Linear(2) {
		t.Error("Bind must not change static strategies")
	}
}

func TestParseKind(t *testing.T) {
	for k := KindLinear; k <= KindDynamic; k++ {
		parsed, ok := ParseKind(k.String())
		if !ok || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), parsed, ok)
		}
	}
	if k, ok := ParseKind(""); !ok || k != KindLinear {
		t.Error("empty kind must parse as linear")
	}
	if _, ok := ParseKind("quadratic"); ok {
		t.Error("unknown kind must not parse")
	}
}
