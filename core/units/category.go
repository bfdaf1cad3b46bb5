package units

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"unitconvert/internal/errors"
	"unitconvert/internal/logging"
)

// MultiplierSource supplies the multipliers of dynamic units. The returned
// map is an immutable snapshot keyed by Strategy.Code; it must not be
// modified by the caller.
type MultiplierSource interface {
	Multipliers() map[string]float64
}

// Refresher keeps the multipliers of an online category up to date.
type Refresher interface {
	// EnsureFresh runs before every conversion. It never fails; problems
	// surface as unresolved multipliers.
	EnsureFresh(ctx context.Context)

	// Sync refreshes when the table is older than maxAge.
	Sync(ctx context.Context, maxAge time.Duration) error
}

// Collision records a synonym claimed by more than one unit. The later
// registration wins.
type Collision struct {
	Synonym  string
	Previous int
	Current  int
}

// Category owns a fixed set of units and converts between them through its
// default unit. It is built once and read-only afterwards; the only mutable
// state lives behind an attached MultiplierSource.
type Category struct {
	id          CategoryID
	name        string
	description string

	units      []Unit
	common     []int
	defaultIdx int

	byID         map[int]int
	bySynonym    map[string]int
	synonymOrder []string
	collisions   []Collision

	multipliers MultiplierSource
	refresher   Refresher

	logger *zap.Logger
}

// Option configures a Category.
type Option func(*Category)

// WithLogger sets the category logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Category) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCategory creates an empty category. Units are added with AddUnit,
// AddCommonUnit and AddDefaultUnit during construction only.
func NewCategory(id CategoryID, name, description string, opts ...Option) *Category {
	c := &Category{
		id:          id,
		name:        name,
		description: description,
		defaultIdx:  -1,
		byID:        make(map[int]int),
		bySynonym:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Named("units")
	}
	c.logger = c.logger.With(zap.String("category", name))
	return c
}

var nullCategory = &Category{
	id:         InvalidCategoryID,
	defaultIdx: -1,
	byID:       map[int]int{},
	bySynonym:  map[string]int{},
	logger:     zap.NewNop(),
}

// NullCategory is returned for unknown category lookups. It has an empty
// name, an invalid id, no units, and rejects registration.
func NullCategory() *Category {
	return nullCategory
}

// ID returns the category identifier
func (c *Category) ID() CategoryID { return c.id }

// Name returns the display name
func (c *Category) Name() string { return c.name }

// Description returns the description
func (c *Category) Description() string { return c.description }

// IsValid reports whether c is a real category.
func (c *Category) IsValid() bool {
	return c != nil && c.id != InvalidCategoryID
}

// AddUnit registers u. It stamps the category id onto the unit and indexes
// every synonym.
func (c *Category) AddUnit(u Unit) (Unit, error) {
	if !c.IsValid() {
		return NullUnit, errors.Definition("cannot register units on the null category")
	}
	if u.Symbol == "" {
		return NullUnit, errors.Definition("unit symbol must not be empty").
			WithContext("category", c.name).
			WithContext("unit_id", u.ID)
	}
	if _, exists := c.byID[u.ID]; exists {
		return NullUnit, errors.Newf(errors.TypeDefinition, "duplicate unit id %d in category %s", u.ID, c.name)
	}

	u.CategoryID = c.id
	idx := len(c.units)
	c.units = append(c.units, u)
	c.byID[u.ID] = idx

	for _, key := range u.Synonyms() {
		prev, exists := c.bySynonym[key]
		if !exists {
			c.synonymOrder = append(c.synonymOrder, key)
		} else if prev != idx {
			collision := Collision{Synonym: key, Previous: c.units[prev].ID, Current: u.ID}
			c.collisions = append(c.collisions, collision)
			c.logger.Warn("synonym claimed by more than one unit",
				zap.String("synonym", key),
				zap.Int("previous_unit", collision.Previous),
				zap.Int("unit", collision.Current))
		}
		c.bySynonym[key] = idx
	}

	return u, nil
}

// AddCommonUnit registers u and marks it as common.
func (c *Category) AddCommonUnit(u Unit) (Unit, error) {
	u, err := c.AddUnit(u)
	if err != nil {
		return u, err
	}
	c.common = append(c.common, c.byID[u.ID])
	return u, nil
}

// AddDefaultUnit registers u as a common unit and makes it the default.
func (c *Category) AddDefaultUnit(u Unit) (Unit, error) {
	if c.defaultIdx >= 0 {
		return NullUnit, errors.Newf(errors.TypeDefinition, "category %s already has default unit %s",
			c.name, c.units[c.defaultIdx].Symbol)
	}
	u, err := c.AddCommonUnit(u)
	if err != nil {
		return u, err
	}
	c.defaultIdx = c.byID[u.ID]
	return u, nil
}

// Validate checks the construction invariants.
func (c *Category) Validate() error {
	if !c.IsValid() {
		return errors.Definition("null category")
	}
	if c.defaultIdx < 0 {
		return errors.Newf(errors.TypeDefinition, "category %s has no default unit", c.name)
	}
	def := c.units[c.defaultIdx]
	if !def.Strategy.Resolved() || def.Strategy.Kind == KindDynamic {
		return errors.Newf(errors.TypeDefinition, "default unit %s of %s must have a fixed strategy", def.Symbol, c.name)
	}
	return nil
}

// SetDynamic attaches the multiplier source and refresher of an online
// category. It is called once during construction.
func (c *Category) SetDynamic(source MultiplierSource, refresher Refresher) {
	c.multipliers = source
	c.refresher = refresher
}

// HasOnlineConversionTable reports whether multipliers come from a remote table.
func (c *Category) HasOnlineConversionTable() bool {
	return c.refresher != nil
}

// SyncConversionTable refreshes the online table when it is older than
// maxAge. Static categories return nil immediately.
func (c *Category) SyncConversionTable(ctx context.Context, maxAge time.Duration) error {
	if c.refresher == nil {
		return nil
	}
	return c.refresher.Sync(ctx, maxAge)
}

// DefaultUnit returns the default unit, or NullUnit for the null category.
func (c *Category) DefaultUnit() Unit {
	if c.defaultIdx < 0 {
		return NullUnit
	}
	return c.bound(c.defaultIdx, c.snapshot())
}

// Unit looks a unit up by exact synonym match.
func (c *Category) Unit(synonym string) Unit {
	if idx, ok := c.bySynonym[synonym]; ok {
		return c.bound(idx, c.snapshot())
	}
	return NullUnit
}

// UnitByID looks a unit up by identifier.
func (c *Category) UnitByID(id int) Unit {
	if idx, ok := c.byID[id]; ok {
		return c.bound(idx, c.snapshot())
	}
	return NullUnit
}

// HasUnit reports whether synonym resolves to a unit.
func (c *Category) HasUnit(synonym string) bool {
	_, ok := c.bySynonym[synonym]
	return ok
}

// Resolve turns a selector into a unit of this category.
func (c *Category) Resolve(sel Selector) Unit {
	switch sel.kind {
	case selectUnit:
		u := c.UnitByID(sel.unit.ID)
		if !u.IsValid() || !u.Equal(sel.unit) {
			return NullUnit
		}
		return u
	case selectID:
		return c.UnitByID(sel.id)
	case selectText:
		return c.Unit(sel.text)
	default:
		return c.DefaultUnit()
	}
}

// Units returns every unit in registration order. Dynamic units carry the
// multiplier in effect at the time of the call.
func (c *Category) Units() []Unit {
	table := c.snapshot()
	out := make([]Unit, len(c.units))
	for i := range c.units {
		out[i] = c.bound(i, table)
	}
	return out
}

// CommonUnits returns the common units in registration order.
func (c *Category) CommonUnits() []Unit {
	table := c.snapshot()
	out := make([]Unit, 0, len(c.common))
	for _, idx := range c.common {
		out = append(out, c.bound(idx, table))
	}
	return out
}

func (c *Category) snapshot() map[string]float64 {
	if c.multipliers == nil {
		return nil
	}
	return c.multipliers.Multipliers()
}

func (c *Category) bound(idx int, table map[string]float64) Unit {
	return bind(c.units[idx], table)
}

// AllSynonyms returns every lookup key in the order it was first registered.
func (c *Category) AllSynonyms() []string {
	out := make([]string, len(c.synonymOrder))
	copy(out, c.synonymOrder)
	return out
}

// Collisions returns the synonyms claimed by more than one unit.
func (c *Category) Collisions() []Collision {
	out := make([]Collision, len(c.collisions))
	copy(out, c.collisions)
	return out
}

// Convert converts v to the selected unit. See ConvertContext.
func (c *Category) Convert(v Value, sel Selector) Value {
	return c.ConvertContext(context.Background(), v, sel)
}

// ConvertContext converts v to the selected unit. It never fails: an
// unknown target, a source unit from another category, a NaN number or an
// unresolved multiplier all produce an invalid Value. ctx bounds the refresh
// an online category may perform first.
func (c *Category) ConvertContext(ctx context.Context, v Value, sel Selector) Value {
	if !c.IsValid() || math.IsNaN(v.number) {
		return InvalidValue()
	}

	src := v.unit
	if !src.IsValid() || src.CategoryID != c.id {
		return InvalidValue()
	}
	src = c.UnitByID(src.ID)
	if !src.IsValid() || !src.Equal(v.unit) {
		return InvalidValue()
	}

	dst := c.Resolve(sel)
	if !dst.IsValid() {
		return InvalidValue()
	}

	if c.refresher != nil {
		c.refresher.EnsureFresh(ctx)
	}

	table := c.snapshot()
	src = bind(src, table)
	dst = bind(dst, table)
	if !src.Strategy.Resolved() || !dst.Strategy.Resolved() {
		return InvalidValue()
	}

	if src.Equal(dst) {
		return NewValue(v.number, dst)
	}

	normalized := src.ToDefaultUnitValue(v.number)
	return NewValue(dst.FromDefaultUnitValue(normalized), dst)
}

// bind resolves a dynamic unit against one multiplier snapshot so that both
// sides of a conversion see the same table.
func bind(u Unit, table map[string]float64) Unit {
	if u.Strategy.Kind != KindDynamic {
		return u
	}
	m, ok := table[u.Strategy.Code]
	if !ok {
		m = math.NaN()
	}
	u.Strategy = u.Strategy.Bind(m)
	return u
}
