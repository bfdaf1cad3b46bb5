package units

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Value is a number tagged with the unit it is expressed in.
type Value struct {
	number float64
	unit   Unit
}

// NewValue pairs a number with a unit.
func NewValue(number float64, unit Unit) Value {
	return Value{number: number, unit: unit}
}

// InvalidValue is the result of every conversion that cannot be completed.
func InvalidValue() Value {
	return Value{number: math.NaN(), unit: NullUnit}
}

// IsValid reports whether the unit is known and the number is not NaN.
func (v Value) IsValid() bool {
	return v.unit.IsValid() && !math.IsNaN(v.number)
}

// Number returns the number, or 0 for an invalid value.
func (v Value) Number() float64 {
	if !v.IsValid() {
		return 0
	}
	return v.number
}

// Unit returns the unit the number is expressed in.
func (v Value) Unit() Unit {
	return v.unit
}

// Round rounds the number to places decimal places, half up: it adds
// 0.5×10⁻ⁿ and truncates toward negative infinity, so -2.5 rounds to -2.
// Rounding is a presentation step and is applied once, never inside a
// conversion.
func (v Value) Round(places int) Value {
	if !v.IsValid() || math.IsInf(v.number, 0) {
		return v
	}
	half := decimal.New(5, -int32(places)-1)
	rounded := decimal.NewFromFloat(v.number).Add(half).RoundFloor(int32(places))
	return Value{number: rounded.InexactFloat64(), unit: v.unit}
}

// String renders "<number> <symbol>", or "" for an invalid value.
func (v Value) String() string {
	if !v.IsValid() {
		return ""
	}
	return strconv.FormatFloat(v.number, 'g', -1, 64) + " " + v.unit.Symbol
}
