// Package units implements the unit data model and the generic conversion
// engine shared by every category.
//
// Every conversion passes through the category's default unit: the source
// unit normalises the number with ToDefault, the target unit denormalises it
// with FromDefault.
package units

import (
	"math"
)

// Kind selects how a unit relates to its category's default unit.
type Kind int

const (
	// KindLinear multiplies by the multiplier
	KindLinear Kind = iota
	// KindLogarithmic is decibel style: 10^(v/10) * multiplier
	KindLogarithmic
	// KindPowerLaw is c * v^exponent (Beaufort)
	KindPowerLaw
	// KindReciprocal is multiplier / v in both directions
	KindReciprocal
	// KindAngular converts radians to degrees
	KindAngular
	// KindAffine is v * scale + offset (temperature scales)
	KindAffine
	// KindPhotonEnergy is k / (v * 1e-9) in both directions (wavelength in nm)
	KindPhotonEnergy
	// KindBinaryExponent multiplies by 2^exponent
	KindBinaryExponent
	// KindDynamic is linear with a multiplier resolved by code at conversion time
	KindDynamic
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindLogarithmic:
		return "logarithmic"
	case KindPowerLaw:
		return "power_law"
	case KindReciprocal:
		return "reciprocal"
	case KindAngular:
		return "angular"
	case KindAffine:
		return "affine"
	case KindPhotonEnergy:
		return "photon_energy"
	case KindBinaryExponent:
		return "binary_exponent"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name back to its Kind. An empty name is linear.
func ParseKind(name string) (Kind, bool) {
	if name == "" {
		return KindLinear, true
	}
	for k := KindLinear; k <= KindDynamic; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return KindLinear, false
}

// beaufortExponent is the exponent of the empirical Beaufort relation.
const beaufortExponent = 1.5

// Strategy is the per-unit conversion behaviour. Only the fields its Kind
// needs are meaningful.
type Strategy struct {
	Kind Kind

	// Multiplier is used by linear, logarithmic, reciprocal and bound dynamic units.
	// For affine units it is the scale.
	Multiplier float64

	// Offset is added after scaling by affine units.
	Offset float64

	// Exponent is the power of power-law units and the power of two of binary units.
	Exponent float64

	// Constant is the coefficient of power-law units and k of photon energy units.
	Constant float64

	// Code identifies the side-table entry of a dynamic unit.
	Code string
}

// Linear returns the default strategy: v * m.
func Linear(m float64) Strategy {
	return Strategy{Kind: KindLinear, Multiplier: m}
}

// Logarithmic returns a decibel strategy relative to m default units.
func Logarithmic(m float64) Strategy {
	return Strategy{Kind: KindLogarithmic, Multiplier: m}
}

// PowerLaw returns c * v^e. A zero exponent means the Beaufort 1.5.
func PowerLaw(c, e float64) Strategy {
	if e == 0 {
		e = beaufortExponent
	}
	return Strategy{Kind: KindPowerLaw, Constant: c, Exponent: e}
}

// Reciprocal returns the self-inverse m / v.
func Reciprocal(m float64) Strategy {
	return Strategy{Kind: KindReciprocal, Multiplier: m}
}

// Angular converts radians to the degree default unit.
func Angular() Strategy {
	return Strategy{Kind: KindAngular}
}

// Affine returns v * scale + offset.
func Affine(scale, offset float64) Strategy {
	return Strategy{Kind: KindAffine, Multiplier: scale, Offset: offset}
}

// Photon returns the self-inverse k / (v * 1e-9) for wavelengths in nanometres.
func Photon(k float64) Strategy {
	return Strategy{Kind: KindPhotonEnergy, Constant: k}
}

// BinaryExponent returns v * 2^e.
func BinaryExponent(e float64) Strategy {
	return Strategy{Kind: KindBinaryExponent, Exponent: e}
}

// Dynamic returns a strategy whose multiplier is looked up by code. Its
// multiplier is NaN until bound, so it converts everything to NaN.
func Dynamic(code string) Strategy {
	return Strategy{Kind: KindDynamic, Multiplier: math.NaN(), Code: code}
}

// Bind resolves a dynamic strategy to the given multiplier. Other kinds are
// returned unchanged.
func (s Strategy) Bind(m float64) Strategy {
	if s.Kind != KindDynamic {
		return s
	}
	s.Multiplier = m
	return s
}

// Resolved reports whether the strategy can produce numbers.
func (s Strategy) Resolved() bool {
	switch s.Kind {
	case KindDynamic:
		return s.Multiplier != 0 && !math.IsNaN(s.Multiplier)
	case KindLinear, KindLogarithmic, KindReciprocal, KindAffine:
		return !math.IsNaN(s.Multiplier)
	default:
		return true
	}
}

// ToDefault converts v from the unit into the default unit.
func (s Strategy) ToDefault(v float64) float64 {
	switch s.Kind {
	case KindLogarithmic:
		return math.Pow(10, v/10) * s.Multiplier
	case KindPowerLaw:
		return s.Constant * math.Pow(v, s.Exponent)
	case KindReciprocal:
		return s.Multiplier / v
	case KindAngular:
		return v / (2 * math.Pi) * 360
	case KindAffine:
		return v*s.Multiplier + s.Offset
	case KindPhotonEnergy:
		return s.Constant / (v * 1e-9)
	case KindBinaryExponent:
		return v * math.Exp2(s.Exponent)
	case KindDynamic:
		if !s.Resolved() {
			return math.NaN()
		}
		return v * s.Multiplier
	default:
		return v * s.Multiplier
	}
}

// FromDefault converts v from the default unit into the unit.
func (s Strategy) FromDefault(v float64) float64 {
	switch s.Kind {
	case KindLogarithmic:
		return 10 * math.Log10(v/s.Multiplier)
	case KindPowerLaw:
		return math.Pow(v/s.Constant, 1/s.Exponent)
	case KindReciprocal:
		return s.Multiplier / v
	case KindAngular:
		return v / 360 * (2 * math.Pi)
	case KindAffine:
		return (v - s.Offset) / s.Multiplier
	case KindPhotonEnergy:
		return s.Constant / (v * 1e-9)
	case KindBinaryExponent:
		return v / math.Exp2(s.Exponent)
	case KindDynamic:
		if !s.Resolved() {
			return math.NaN()
		}
		return v / s.Multiplier
	default:
		return v / s.Multiplier
	}
}
