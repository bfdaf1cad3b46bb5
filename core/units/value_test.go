package units

import (
	"math"
	"testing"
)

func TestValueValidity(t *testing.T) {
	m := NewUnit(2, "m", "meters", "meter", Linear(1))

	tests := []struct {
		name   string
		value  Value
		valid  bool
		number float64
		text   string
	}{
		{"valid", NewValue(2.5, m), true, 2.5, "2.5 m"},
		{"NaN", NewValue(math.NaN(), m), false, 0, ""},
		{"null unit", NewValue(2.5, NullUnit), false, 0, ""},
		{"invalid sentinel", InvalidValue(), false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.IsValid() != tt.valid {
				t.Errorf("IsValid: expected %v", tt.valid)
			}
			if tt.value.Number() != tt.number {
				t.Errorf("Number: expected %v, got %v", tt.number, tt.value.Number())
			}
			if tt.value.String() != tt.text {
				t.Errorf("String: expected %q, got %q", tt.text, tt.value.String())
			}
		})
	}
}

func TestValueRound(t *testing.T) {
	m := NewUnit(2, "m", "meters", "", Linear(1))

	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{29.401875, 2, 29.4},
		{35.310125, 3, 35.31},
		{2.5, 0, 3},
		{0.125, 2, 0.13},
		{-0.125, 2, -0.12},
		{-2.5, 0, -2},
		{-2.51, 0, -3},
		{1250, -2, 1300},
		{3140.0000000000005, 6, 3140},
	}

	for _, tt := range tests {
		got := NewValue(tt.in, m).Round(tt.places)
		if got.Number() != tt.want {
			t.Errorf("Round(%v, %d): expected %v, got %v", tt.in, tt.places, tt.want, got.Number())
		}
		if !got.Unit().Equal(m) {
			t.Error("Round must keep the unit")
		}
	}

	if InvalidValue().Round(2).IsValid() {
		t.Error("rounding keeps invalid values invalid")
	}
}

func TestUnitIdentity(t *testing.T) {
	a := NewUnit(1, "km", "kilometers", "kilometer", Linear(1000))
	b := NewUnit(1, "km", "Kilometer (localized)", "", Linear(999))
	c := NewUnit(1, "kms", "kilometers", "kilometer", Linear(1000))

	if !a.Equal(b) {
		t.Error("units with the same id and symbol are equal")
	}
	if a.Equal(c) {
		t.Error("units with different symbols differ")
	}
	if NullUnit.IsValid() {
		t.Error("null unit must be invalid")
	}
}

func TestSplitSynonyms(t *testing.T) {
	got := SplitSynonyms("km;;kilometer;Kilometer;")
	want := []string{"km", "kilometer", "Kilometer"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if SplitSynonyms("") != nil {
		t.Error("empty list yields no synonyms")
	}

	u := NewUnit(1, "km", "", "kilometer;km", Linear(1000))
	if syn := u.Synonyms(); len(syn) != 2 || syn[0] != "km" {
		t.Errorf("symbol must lead and not repeat, got %v", syn)
	}
}
