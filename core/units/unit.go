package units

import (
	"strconv"
	"strings"
)

// CategoryID identifies a category. Units refer to their category by id
// rather than by pointer.
type CategoryID int

// InvalidCategoryID is reported by the null category.
const InvalidCategoryID CategoryID = -1

// String returns the numeric id, or "invalid".
func (id CategoryID) String() string {
	if id < 0 {
		return "invalid"
	}
	return strconv.Itoa(int(id))
}

// Unit is one unit of measure within a category. Units are values: the
// category hands out copies and never mutates a registered unit.
type Unit struct {
	// CategoryID is stamped by the owning category at registration
	CategoryID CategoryID

	// ID is unique within the category
	ID int

	// Symbol is the display symbol; empty only for the null unit
	Symbol string

	// Name is a human readable name
	Name string

	// Strategy converts to and from the category default unit
	Strategy Strategy

	synonyms []string
}

// NullUnit is the sentinel returned for lookup misses.
var NullUnit = Unit{CategoryID: InvalidCategoryID, ID: -1}

// NewUnit builds a unit. synonyms is a semicolon-joined list of exact-match
// keys; the symbol is always a key as well.
func NewUnit(id int, symbol, name, synonyms string, strategy Strategy) Unit {
	return Unit{
		CategoryID: InvalidCategoryID,
		ID:         id,
		Symbol:     symbol,
		Name:       name,
		Strategy:   strategy,
		synonyms:   SplitSynonyms(synonyms),
	}
}

// SplitSynonyms splits a semicolon-joined synonym list. Empty entries are
// dropped; entries are otherwise kept verbatim because matching is exact.
func SplitSynonyms(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Synonyms returns the unit's lookup keys, symbol first, without duplicates.
func (u Unit) Synonyms() []string {
	keys := make([]string, 0, len(u.synonyms)+1)
	seen := make(map[string]bool, len(u.synonyms)+1)
	if u.Symbol != "" {
		keys = append(keys, u.Symbol)
		seen[u.Symbol] = true
	}
	for _, s := range u.synonyms {
		if seen[s] {
			continue
		}
		seen[s] = true
		keys = append(keys, s)
	}
	return keys
}

// IsValid reports whether u is a real unit rather than the null sentinel.
func (u Unit) IsValid() bool {
	return u.Symbol != ""
}

// Equal compares identity only: category, id and symbol.
func (u Unit) Equal(o Unit) bool {
	return u.CategoryID == o.CategoryID && u.ID == o.ID && u.Symbol == o.Symbol
}

// ToDefaultUnitValue converts v into the category default unit.
func (u Unit) ToDefaultUnitValue(v float64) float64 {
	return u.Strategy.ToDefault(v)
}

// FromDefaultUnitValue converts v from the category default unit.
func (u Unit) FromDefaultUnitValue(v float64) float64 {
	return u.Strategy.FromDefault(v)
}

// Multiplier returns the strategy multiplier.
func (u Unit) Multiplier() float64 {
	return u.Strategy.Multiplier
}

// String returns the symbol.
func (u Unit) String() string {
	return u.Symbol
}
