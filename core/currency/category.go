// Package currency implements the currency category: a units.Category whose
// feed-sourced units take their multipliers from a remote exchange-rate
// document, cached locally and refreshed when stale.
//
// Multipliers live in a RateTable side-table rather than on the units, so
// units handed to callers are never mutated. Until a document has been
// applied, feed-sourced units are unresolved and every conversion involving
// them yields an invalid value.
package currency

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"unitconvert/core/units"
	"unitconvert/internal/errors"
	"unitconvert/internal/logging"
)

// Fetcher retrieves the raw rate document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Cache persists the rate document. Write must replace the document
// atomically.
type Cache interface {
	Stat() (modTime time.Time, exists bool, err error)
	Read() (data []byte, modTime time.Time, err error)
	Write(data []byte) error
}

// Category is the currency category.
type Category struct {
	*units.Category

	table   *RateTable
	codes   []string
	known   map[string]bool
	fetcher Fetcher
	cache   Cache
	policy  Policy
	logger  *zap.Logger
	now     func() time.Time
	group   singleflight.Group

	// mu guards the fields below and serialises the apply step.
	mu       sync.Mutex
	parsed   bool
	docTime  time.Time
	feedDate time.Time
	docHash  string
	last     Report
}

// Option configures a Category.
type Option func(*Category)

// WithFetcher sets the remote fetch capability.
func WithFetcher(f Fetcher) Option {
	return func(c *Category) { c.fetcher = f }
}

// WithCache sets the document cache.
func WithCache(cache Cache) Option {
	return func(c *Category) { c.cache = cache }
}

// WithPolicy sets the refresh policy.
func WithPolicy(p Policy) Option {
	return func(c *Category) { c.policy = p }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Category) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Category) {
		if now != nil {
			c.now = now
		}
	}
}

// New wraps base, whose feed-sourced units use units.Dynamic strategies, and
// attaches the rate table and refresh hook to it. base must not be shared
// with another currency category.
func New(base *units.Category, opts ...Option) (*Category, error) {
	if !base.IsValid() {
		return nil, errors.Definition("currency category requires a valid base category")
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if base.HasOnlineConversionTable() {
		return nil, errors.Newf(errors.TypeDefinition, "category %s already has an online table", base.Name())
	}

	c := &Category{
		Category: base,
		table:    NewRateTable(),
		known:    make(map[string]bool),
		policy:   DefaultPolicy(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Named("currency")
	}

	for _, u := range base.Units() {
		if u.Strategy.Kind != units.KindDynamic {
			continue
		}
		if c.known[u.Strategy.Code] {
			return nil, errors.Newf(errors.TypeDefinition, "currency code %s is used by more than one unit", u.Strategy.Code)
		}
		c.known[u.Strategy.Code] = true
		c.codes = append(c.codes, u.Strategy.Code)
	}

	base.SetDynamic(c.table, c)
	return c, nil
}

// Policy returns the refresh policy.
func (c *Category) Policy() Policy {
	return c.policy
}

// Multiplier returns how many default-currency units one unit of code is
// worth: 1 for the default currency, the fixed multiplier of pegged units,
// the table value for feed-sourced units, NaN when unresolved or unknown.
func (c *Category) Multiplier(code string) float64 {
	u := c.Unit(code)
	if !u.IsValid() {
		return math.NaN()
	}
	return u.Multiplier()
}

// Unresolved lists the feed-sourced codes that have no multiplier yet, in
// registration order.
func (c *Category) Unresolved() []string {
	var out []string
	for _, code := range c.codes {
		if math.IsNaN(c.table.Multiplier(code)) {
			out = append(out, code)
		}
	}
	return out
}

// RatesDate returns the reference date of the applied document.
func (c *Category) RatesDate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedDate
}

// LastReport returns the report of the most recent refresh attempt.
func (c *Category) LastReport() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.clone()
}

// DocumentHash identifies the applied rate document, empty before the first
// successful apply.
func (c *Category) DocumentHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docHash
}
