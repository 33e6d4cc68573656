// Package interestcache fronts the slow trend source with a date-scoped JSON
// file cache and a static fallback table.
package interestcache

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/imyuanhui/COMP47360/internal/adapter/trends"
	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// DefaultInterest is used when neither a live value nor a fallback exists.
const DefaultInterest = 0.0

// Fetcher returns the live interest for a keyword. trends.ErrNoData (or any
// error) means nothing usable was returned.
type Fetcher interface {
	Fetch(ctx context.Context, keyword string) (float64, error)
}

// Fallback is the static keyword -> interest table.
type Fallback interface {
	Lookup(keyword string) (float64, bool)
}

// Options configure a Cache.
type Options struct {
	Path string
	// Timeout bounds one live fetch. Zero leaves the fetch unbounded; callers
	// still fall back as soon as their own context is done.
	Timeout time.Duration
	// Clock decides "today". Defaults to the real clock.
	Clock clockwork.Clock
	// MemoSize bounds the in-memory copy of persisted values. Zero reads the
	// file on every lookup.
	MemoSize int
}

// Cache implements domain.InterestProvider.
type Cache struct {
	path     string
	timeout  time.Duration
	clock    clockwork.Clock
	fetcher  Fetcher
	fallback Fallback
	metrics  *observability.Metrics
	logger   *slog.Logger

	memo    *memo
	flights singleflight.Group
	rename  func(oldpath, newpath string) error
}

// flightResult is what one fetch hands to every caller waiting on the zone.
type flightResult struct {
	value  float64
	origin domain.InterestOrigin
	ok     bool
}

// New creates the cache. fetcher may be nil to disable live lookups, and
// fallback may be nil when no static table is configured.
func New(opts Options, fetcher Fetcher, fallback Fallback, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		path:     opts.Path,
		timeout:  opts.Timeout,
		clock:    clock,
		fetcher:  fetcher,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
		memo:     newMemo(opts.MemoSize),
		rename:   os.Rename,
	}
}

// Interest returns today's interest for zoneName. It never fails: a cache
// hit is returned as is, a miss fetches and persists, and a failed or empty
// fetch degrades to the fallback table and then to DefaultInterest.
func (c *Cache) Interest(ctx context.Context, zoneName string) domain.InterestReading {
	today := c.today()

	if v, ok := c.cached(today, zoneName); ok {
		return c.reading(v, domain.InterestFromCache)
	}
	if c.fetcher == nil {
		return c.fallbackFor(zoneName)
	}

	// Concurrent misses for a zone share one fetch, and its outcome. The fetch
	// is detached from any single caller so one caller leaving early does not
	// abort it for the rest.
	ch := c.flights.DoChan(today+"|"+zoneName, func() (any, error) {
		return c.fetchAndStore(context.WithoutCancel(ctx), today, zoneName), nil
	})
	select {
	case res := <-ch:
		r := res.Val.(flightResult)
		if !r.ok {
			return c.fallbackFor(zoneName)
		}
		return c.reading(r.value, r.origin)
	case <-ctx.Done():
		c.logger.Warn("interest lookup abandoned, using fallback", "zone", zoneName, "error", ctx.Err())
		return c.fallbackFor(zoneName)
	}
}

func (c *Cache) fetchAndStore(ctx context.Context, today, zoneName string) flightResult {
	// A flight that started after another one persisted the zone finds it here.
	if v, ok := c.cached(today, zoneName); ok {
		return flightResult{value: v, origin: domain.InterestFromCache, ok: true}
	}

	v, err := c.fetch(ctx, zoneName)
	if err != nil {
		if errors.Is(err, trends.ErrNoData) {
			c.logger.Info("no interest data", "zone", zoneName)
		} else {
			c.logger.Warn("interest fetch failed", "zone", zoneName, "error", err)
		}
		return flightResult{}
	}

	if err := c.store(today, zoneName, v); err != nil {
		c.logger.Warn("interest cache write failed", "zone", zoneName, "path", c.path, "error", err)
	} else {
		c.memo.put(today, zoneName, v)
	}
	return flightResult{value: v, origin: domain.InterestFromLive, ok: true}
}

func (c *Cache) today() string {
	return c.clock.Now().Format(DateLayout)
}

func (c *Cache) fetch(ctx context.Context, zoneName string) (float64, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.fetcher.Fetch(ctx, zoneName)
}

func (c *Cache) cached(today, zoneName string) (float64, bool) {
	if v, ok := c.memo.get(today, zoneName); ok {
		c.logger.Debug("interest cache hit", "zone", zoneName, "memo", true)
		return v, true
	}
	e := c.load()
	if e.Date != today {
		return 0, false
	}
	v, ok := e.Data[zoneName]
	if ok {
		c.memo.put(today, zoneName, v)
		c.logger.Debug("interest cache hit", "zone", zoneName)
	}
	return v, ok
}

func (c *Cache) load() Entry {
	e, err := ReadEntry(c.path)
	if err != nil {
		c.logger.Warn("interest cache unreadable, treating as empty", "path", c.path, "error", err)
		return Entry{}
	}
	return e
}

// store reloads the file under the path lock, discards it whole if it is
// from another day, adds the zone and atomically replaces the file.
func (c *Cache) store(today, zoneName string, v float64) error {
	unlock := lockPath(c.path)
	defer unlock()

	e := c.load()
	if e.Date != today || e.Data == nil {
		e = Entry{Date: today, Data: make(map[string]float64)}
	}
	e.Data[zoneName] = v
	return writeEntry(c.path, e, c.rename)
}

func (c *Cache) fallbackFor(zoneName string) domain.InterestReading {
	if c.fallback != nil {
		if v, ok := c.fallback.Lookup(zoneName); ok {
			return c.reading(v, domain.InterestFromFallback)
		}
	}
	return c.reading(DefaultInterest, domain.InterestFromDefault)
}

func (c *Cache) reading(v float64, origin domain.InterestOrigin) domain.InterestReading {
	c.metrics.InterestLookups.WithLabelValues(string(origin)).Inc()
	return domain.InterestReading{Value: v, Origin: origin}
}
