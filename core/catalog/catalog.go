// Package catalog - Authoritative unit catalog
// Builds every category from the embedded definitions and dispatches
// lookups and conversions across them.
package catalog

import (
	"context"
	"io/fs"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"unitconvert/adapters/ratefeed"
	"unitconvert/adapters/storage"
	"unitconvert/core/currency"
	"unitconvert/core/units"
	"unitconvert/internal/config"
	"unitconvert/internal/logging"
)

// Category identifiers of the built-in definitions.
const (
	Length units.CategoryID = iota
	Area
	Volume
	Mass
	Time
	Velocity
	Temperature
	Pressure
	Energy
	Power
	Angle
	FuelEfficiency
	DataStorage
	Currency
)

// Registry holds one instance of every category. It is immutable after
// construction; only the currency rate table changes, behind its own lock.
type Registry struct {
	categories []*units.Category
	byID       map[units.CategoryID]*units.Category
	byKey      map[string]*units.Category
	currency   *currency.Category
	logger     *zap.Logger
}

type options struct {
	cfg     *config.Config
	cfgFile string
	logger  *zap.Logger
	defs    fs.FS
	rules   []ValidationRule
	fetcher currency.Fetcher
	cache   currency.Cache
	policy  *currency.Policy
	now     func() time.Time
}

// Option configures New.
type Option func(*options)

// WithConfig sets the configuration; the default is config.Get().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile loads the configuration from a JSON file, then applies the
// environment overrides. A missing file yields the defaults. WithConfig
// takes precedence.
func WithConfigFile(path string) Option {
	return func(o *options) { o.cfgFile = path }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDefinitions replaces the embedded definitions.
func WithDefinitions(fsys fs.FS) Option {
	return func(o *options) { o.defs = fsys }
}

// WithValidationRules replaces DefaultValidationRules.
func WithValidationRules(rules ...ValidationRule) Option {
	return func(o *options) { o.rules = rules }
}

// WithFetcher replaces the HTTP rate feed.
func WithFetcher(f currency.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithCache replaces the file cache.
func WithCache(c currency.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithPolicy replaces the policy derived from configuration.
func WithPolicy(p currency.Policy) Option {
	return func(o *options) { o.policy = &p }
}

// WithClock overrides the currency time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a registry. Without overrides the online category fetches from
// the configured feed URL and caches at the configured path.
func New(opts ...Option) (*Registry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil && o.cfgFile != "" {
		cfg, err := config.Load(o.cfgFile)
		if err != nil {
			return nil, err
		}
		cfg.ApplyEnv()
		o.cfg = cfg
	}
	if o.cfg == nil {
		o.cfg = config.Get()
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = logging.Named("catalog")
	}
	if o.defs == nil {
		o.defs = EmbeddedDefinitions()
	}
	if o.rules == nil {
		o.rules = DefaultValidationRules()
	}

	defs, err := LoadDefinitions(o.defs)
	if err != nil {
		return nil, err
	}
	if err := Validate(defs, o.rules); err != nil {
		return nil, err
	}

	r := &Registry{
		byID:   make(map[units.CategoryID]*units.Category, len(defs)),
		byKey:  make(map[string]*units.Category, len(defs)),
		logger: o.logger,
	}

	for _, def := range defs {
		c, err := def.Build(units.WithLogger(o.logger.Named("units")))
		if err != nil {
			return nil, err
		}
		for _, col := range c.Collisions() {
			o.logger.Warn("synonym collision in definitions",
				zap.String("category", def.Key),
				zap.String("synonym", col.Synonym))
		}

		if def.Online {
			cur, err := newCurrency(c, o)
			if err != nil {
				return nil, err
			}
			if r.currency == nil {
				r.currency = cur
			}
		}

		r.categories = append(r.categories, c)
		r.byID[c.ID()] = c
		r.byKey[def.Key] = c
	}

	o.logger.Debug("catalog built", zap.Int("categories", len(r.categories)))
	return r, nil
}

func newCurrency(base *units.Category, o *options) (*currency.Category, error) {
	cc := o.cfg.Currency
	logger := o.logger.Named("currency")

	fetcher := o.fetcher
	var feed *ratefeed.Adapter
	if fetcher == nil {
		feed = ratefeed.New(ratefeed.ConfigFrom(cc), logger.Named("ratefeed"))
		fetcher = feed
	}

	cache := o.cache
	if cache == nil {
		backend := storage.Backend(cc.CacheBackend)
		if backend == "" {
			backend = storage.BackendFile
		}
		store, err := storage.StoreFactory(backend, cc.CachePath, logger.Named("storage"))
		if err != nil {
			return nil, err
		}
		cache = store
	}

	var policy currency.Policy
	if o.policy != nil {
		policy = *o.policy
	} else {
		var probe func() bool
		if feed != nil {
			probe = feed.Reachable
		}
		policy = currency.PolicyFromConfig(cc, probe)
	}

	copts := []currency.Option{
		currency.WithFetcher(fetcher),
		currency.WithPolicy(policy),
		currency.WithLogger(logger),
		currency.WithClock(o.now),
	}
	copts = append(copts, currency.WithCache(cache))
	return currency.New(base, copts...)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, built on first use from
// config.Get(), which also configures the global logger. The embedded
// definitions are validated by the package tests, so a failure here is a
// build defect and panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		cfg := config.Get()
		if err := logging.Initialize(cfg.Logging); err != nil {
			logging.Error("failed to configure logging", zap.Error(err))
		}
		r, err := New(WithConfig(cfg))
		if err != nil {
			logging.Error("failed to build default catalog", zap.Error(err))
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Category returns the category with id, or the null category.
func (r *Registry) Category(id units.CategoryID) *units.Category {
	if c, ok := r.byID[id]; ok {
		return c
	}
	return units.NullCategory()
}

// CategoryByName matches a definition key exactly or a display name
// case-insensitively. Unknown names return the null category.
func (r *Registry) CategoryByName(name string) *units.Category {
	if c, ok := r.byKey[name]; ok {
		return c
	}
	for _, c := range r.categories {
		if strings.EqualFold(c.Name(), name) {
			return c
		}
	}
	return units.NullCategory()
}

// Categories returns every category ordered by id.
func (r *Registry) Categories() []*units.Category {
	out := make([]*units.Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// FindUnit returns the first unit, in category id order, with the given
// synonym.
func (r *Registry) FindUnit(synonym string) units.Unit {
	for _, c := range r.categories {
		if u := c.Unit(synonym); u.IsValid() {
			return u
		}
	}
	return units.NullUnit
}

// FindUnits returns every unit with the given synonym, in category id order.
func (r *Registry) FindUnits(synonym string) []units.Unit {
	var out []units.Unit
	for _, c := range r.categories {
		if u := c.Unit(synonym); u.IsValid() {
			out = append(out, u)
		}
	}
	return out
}

// UnitByID looks a unit up by category and unit id.
func (r *Registry) UnitByID(category units.CategoryID, id int) units.Unit {
	return r.Category(category).UnitByID(id)
}

// Convert dispatches to the category that owns the value's unit.
func (r *Registry) Convert(ctx context.Context, v units.Value, sel units.Selector) units.Value {
	return r.Category(v.Unit().CategoryID).ConvertContext(ctx, v, sel)
}

// ConvertSymbols converts number from one synonym to another. The source is
// resolved with FindUnit; the target must belong to the same category.
func (r *Registry) ConvertSymbols(ctx context.Context, number float64, from, to string) units.Value {
	src := r.FindUnit(from)
	if !src.IsValid() {
		return units.InvalidValue()
	}
	return r.Convert(ctx, units.NewValue(number, src), units.BySymbol(to))
}

// Currency returns the online currency category, or nil when the
// definitions contain none.
func (r *Registry) Currency() *currency.Category {
	return r.currency
}

// OnlineCategories returns the categories with a remote conversion table.
func (r *Registry) OnlineCategories() []*units.Category {
	var out []*units.Category
	for _, c := range r.categories {
		if c.HasOnlineConversionTable() {
			out = append(out, c)
		}
	}
	return out
}

// SyncConversionTables refreshes every online table older than maxAge and
// returns the combined refresh errors.
func (r *Registry) SyncConversionTables(ctx context.Context, maxAge time.Duration) error {
	var err error
	for _, c := range r.OnlineCategories() {
		if serr := c.SyncConversionTable(ctx, maxAge); serr != nil {
			r.logger.Warn("conversion table sync failed",
				zap.String("category", c.Name()),
				zap.Error(serr))
			err = multierr.Append(err, serr)
		}
	}
	return err
}

// Stats returns catalog statistics
func (r *Registry) Stats() CatalogStats {
	stats := CatalogStats{
		Categories: len(r.categories),
		ByKind:     make(map[units.Kind]int),
	}
	for _, c := range r.categories {
		for _, u := range c.Units() {
			stats.Units++
			stats.ByKind[u.Strategy.Kind]++
		}
		stats.CommonUnits += len(c.CommonUnits())
		stats.Synonyms += len(c.AllSynonyms())
		stats.Collisions += len(c.Collisions())
	}
	return stats
}

// CatalogStats holds catalog statistics
type CatalogStats struct {
	Categories  int
	Units       int
	CommonUnits int
	Synonyms    int
	Collisions  int
	ByKind      map[units.Kind]int
}
