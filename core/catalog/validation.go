// Package catalog - Definition validation
// Ensures category definitions are consistent before any category is built.
package catalog

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"unitconvert/core/units"
)

// ValidationRule is a unit definition validation rule
type ValidationRule func(cat *CategoryDef, u *UnitDef) error

// DefaultValidationRules returns the standard validation rules
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateRole,
		validateStrategyParameters,
		validateDynamicPlacement,
	}
}

// Validate checks definitions against the rules and the category-level
// invariants. It returns every violation combined, or nil.
func Validate(defs []CategoryDef, rules []ValidationRule) error {
	var err error
	ids := make(map[int]string)
	keys := make(map[string]bool)

	for i := range defs {
		cat := &defs[i]
		if prev, dup := ids[cat.ID]; dup {
			err = multierr.Append(err, fmt.Errorf("%s: category id %d already used by %s", cat.Key, cat.ID, prev))
		}
		ids[cat.ID] = cat.Key
		if keys[cat.Key] {
			err = multierr.Append(err, fmt.Errorf("%s: duplicate category key", cat.Key))
		}
		keys[cat.Key] = true
		if cat.ID < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: category id must not be negative", cat.Key))
		}

		defaults := 0
		for j := range cat.Units {
			u := &cat.Units[j]
			if u.Role == RoleDefault {
				defaults++
			}
			for _, rule := range rules {
				if rerr := rule(cat, u); rerr != nil {
					err = multierr.Append(err, fmt.Errorf("%s (%s): unit %s: %w", cat.Key, cat.file, u.Key, rerr))
				}
			}
		}
		if defaults != 1 {
			err = multierr.Append(err, fmt.Errorf("%s: expected exactly one default unit, found %d", cat.Key, defaults))
		}
	}

	return err
}

// validateRole ensures the role is one of the known values
func validateRole(_ *CategoryDef, u *UnitDef) error {
	switch u.Role {
	case "", RoleCommon, RoleDefault:
		return nil
	}
	return fmt.Errorf("unknown role %q", u.Role)
}

// validateStrategyParameters ensures every strategy has usable parameters
func validateStrategyParameters(_ *CategoryDef, u *UnitDef) error {
	kind, ok := units.ParseKind(u.Strategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q", u.Strategy)
	}

	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	if !finite(u.Multiplier) || !finite(u.Offset) || !finite(u.Exponent) || !finite(u.Constant) {
		return fmt.Errorf("parameters must be finite")
	}

	switch kind {
	case units.KindLinear, units.KindLogarithmic, units.KindReciprocal:
		if u.Multiplier < 0 {
			return fmt.Errorf("%s multiplier must be positive", kind)
		}
	case units.KindPowerLaw, units.KindPhotonEnergy:
		if u.Constant <= 0 {
			return fmt.Errorf("%s requires a positive constant", kind)
		}
	case units.KindBinaryExponent:
		if u.Exponent == 0 {
			return fmt.Errorf("%s requires a non-zero exponent", kind)
		}
	}

	if u.Role == RoleDefault && kind == units.KindDynamic {
		return fmt.Errorf("default unit must have a fixed strategy")
	}
	return nil
}

// validateDynamicPlacement ensures dynamic units only appear in online categories
func validateDynamicPlacement(cat *CategoryDef, u *UnitDef) error {
	kind, _ := units.ParseKind(u.Strategy)
	if kind == units.KindDynamic && !cat.Online {
		return fmt.Errorf("dynamic unit in offline category")
	}
	if kind != units.KindDynamic && u.Code != "" {
		return fmt.Errorf("code is only meaningful for dynamic units")
	}
	return nil
}
