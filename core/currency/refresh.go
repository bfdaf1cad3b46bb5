package currency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"unitconvert/internal/errors"
)

// State is a step of the refresh sequence.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateFetching
	StateApplying
	StateSkipping
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateFetching:
		return "fetching"
	case StateApplying:
		return "applying"
	case StateSkipping:
		return "skipping"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Source names where the rates in effect after a refresh came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceMemory  Source = "memory"
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// Report describes one refresh attempt.
type Report struct {
	ID       string
	Path     []State
	Source   Source
	Fetched  bool
	Applied  int
	Ignored  []string
	FeedDate time.Time
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Final returns the last state reached.
func (r Report) Final() State {
	if len(r.Path) == 0 {
		return StateUnknown
	}
	return r.Path[len(r.Path)-1]
}

func (r Report) clone() Report {
	r.Path = append([]State(nil), r.Path...)
	r.Ignored = append([]string(nil), r.Ignored...)
	return r
}

// applyResult is what a fetch-and-apply run hands to every waiting caller.
type applyResult struct {
	reused   bool
	applied  int
	ignored  []string
	feedDate time.Time
}

// EnsureFresh refreshes the table when it is older than the policy MaxAge.
// It runs before every conversion and never fails; a failed refresh leaves
// the previous multipliers in place.
func (c *Category) EnsureFresh(ctx context.Context) {
	if c.freshInMemory(c.now(), c.policy.MaxAge) {
		return
	}
	_, _ = c.refresh(ctx, c.policy.MaxAge)
}

// Sync refreshes the table when it is older than maxAge. A non-positive
// maxAge forces a refresh.
func (c *Category) Sync(ctx context.Context, maxAge time.Duration) error {
	_, err := c.refresh(ctx, maxAge)
	return err
}

// SyncReport is Sync returning the report of the attempt. The error is
// non-nil only when a fetch or a cache load was attempted and failed.
func (c *Category) SyncReport(ctx context.Context, maxAge time.Duration) (Report, error) {
	return c.refresh(ctx, maxAge)
}

func (c *Category) refresh(ctx context.Context, maxAge time.Duration) (Report, error) {
	start := c.now()
	r := &Report{ID: uuid.NewString(), Source: SourceNone, Started: start}
	log := c.logger.With(zap.String("refresh", r.ID))

	c.enter(log, r, StateChecking)
	err := c.check(ctx, log, r, start, maxAge)
	c.enter(log, r, StateReady)

	r.Err = err
	r.Duration = c.now().Sub(start)

	c.mu.Lock()
	if r.Source == SourceNone && c.parsed {
		r.Source = SourceMemory
	}
	if r.FeedDate.IsZero() {
		r.FeedDate = c.feedDate
	}
	c.last = r.clone()
	c.mu.Unlock()

	if err != nil {
		log.Warn("currency refresh failed", zap.Error(err), zap.String("source", string(r.Source)))
	} else {
		log.Debug("currency refresh complete",
			zap.String("source", string(r.Source)),
			zap.Int("applied", r.Applied),
			zap.Duration("duration", r.Duration))
	}
	return r.clone(), err
}

// check runs the Checking step and whatever follows it up to Ready.
func (c *Category) check(ctx context.Context, log *zap.Logger, r *Report, now time.Time, maxAge time.Duration) error {
	if c.freshInMemory(now, maxAge) {
		return nil
	}

	modTime, cached := c.statCache(log)
	if cached && fresh(now, modTime, maxAge) {
		c.enter(log, r, StateSkipping)
		c.mu.Lock()
		reload := !c.parsed || modTime.After(c.docTime)
		c.mu.Unlock()
		if !reload {
			return nil
		}
		return c.loadCache(log, r)
	}

	if c.fetcher == nil || !c.policy.allowsDownload() {
		c.enter(log, r, StateSkipping)
		return c.fallback(log, r, cached)
	}

	c.enter(log, r, StateFetching)
	// The shared fetch outlives any single caller; only FetchTimeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("fetch", func() (any, error) {
		return c.fetchAndApply(fetchCtx, maxAge)
	})

	var out singleflight.Result
	select {
	case out = <-ch:
	case <-ctx.Done():
		out.Err = errors.Network("waiting for rate document", ctx.Err())
	}
	if out.Err != nil {
		c.enter(log, r, StateSkipping)
		if ferr := c.fallback(log, r, cached); ferr != nil {
			log.Warn("stale cache fallback failed", zap.Error(ferr))
		}
		return out.Err
	}

	res := out.Val.(applyResult)
	if out.Shared {
		log.Debug("joined in-flight fetch")
	}
	if res.reused {
		return nil
	}
	c.enter(log, r, StateApplying)
	r.Fetched = true
	r.Source = SourceNetwork
	r.Applied = res.applied
	r.Ignored = append([]string(nil), res.ignored...)
	r.FeedDate = res.feedDate
	return nil
}

// fetchAndApply downloads the document, persists it and applies it. Callers
// that arrive while it runs share its result.
func (c *Category) fetchAndApply(ctx context.Context, maxAge time.Duration) (applyResult, error) {
	if c.freshInMemory(c.now(), maxAge) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return applyResult{reused: true, feedDate: c.feedDate}, nil
	}

	if c.policy.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.FetchTimeout)
		defer cancel()
	}

	data, err := c.fetcher.Fetch(ctx)
	if err != nil {
		if errors.IsType(err, errors.TypeNetwork) {
			return applyResult{}, err
		}
		return applyResult{}, errors.Network("fetching rate document", err)
	}

	feed, err := ParseFeed(data)
	if err != nil {
		return applyResult{}, err
	}

	if c.cache != nil {
		if err := c.cache.Write(data); err != nil {
			return applyResult{}, errors.Cache("writing rate document", err)
		}
	}

	applied, ignored := c.apply(feed, c.now())
	return applyResult{applied: applied, ignored: ignored, feedDate: feed.Date}, nil
}

// fallback parses the local document, even if stale, when nothing has been
// parsed in this process yet.
func (c *Category) fallback(log *zap.Logger, r *Report, cached bool) error {
	c.mu.Lock()
	parsed := c.parsed
	c.mu.Unlock()
	if parsed || !cached {
		return nil
	}
	return c.loadCache(log, r)
}

func (c *Category) loadCache(log *zap.Logger, r *Report) error {
	data, modTime, err := c.cache.Read()
	if err != nil {
		return errors.Cache("reading rate document", err)
	}
	feed, err := ParseFeed(data)
	if err != nil {
		return err
	}

	c.enter(log, r, StateApplying)
	r.Applied, r.Ignored = c.apply(feed, modTime)
	r.Source = SourceCache
	r.FeedDate = feed.Date
	return nil
}

// apply publishes the rates of known codes. at is the age reference of the
// document: the fetch time, or the cache modification time.
func (c *Category) apply(feed *Feed, at time.Time) (int, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rates := feed.Multipliers()
	update := make(map[string]float64, len(rates))
	var ignored []string
	for _, rate := range feed.Rates {
		if !c.known[rate.Code] {
			ignored = append(ignored, rate.Code)
			continue
		}
		update[rate.Code] = rates[rate.Code]
	}
	ignored = append(ignored, feed.Rejected...)

	applied := c.table.Apply(update)
	c.parsed = true
	c.docTime = at
	c.feedDate = feed.Date
	c.docHash = feed.Hash

	c.logger.Info("currency rates applied",
		zap.Int("applied", applied),
		zap.Int("ignored", len(ignored)),
		zap.Time("feed_date", feed.Date),
		zap.String("document", feed.Hash))
	return applied, ignored
}

func (c *Category) statCache(log *zap.Logger) (time.Time, bool) {
	if c.cache == nil {
		return time.Time{}, false
	}
	modTime, exists, err := c.cache.Stat()
	if err != nil {
		log.Warn("rate cache unreadable", zap.Error(err))
		return time.Time{}, false
	}
	return modTime, exists
}

func (c *Category) freshInMemory(now time.Time, maxAge time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parsed && fresh(now, c.docTime, maxAge)
}

func (c *Category) enter(log *zap.Logger, r *Report, s State) {
	r.Path = append(r.Path, s)
	log.Debug("refresh state", zap.Stringer("state", s))
}

func fresh(now, stamp time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(stamp) <= maxAge
}
