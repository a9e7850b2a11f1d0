// Package recommend serves recommendation lookups through the TTL cache.
package recommend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/explore-jakarta/recocache/pkg/cache"
	"github.com/explore-jakarta/recocache/pkg/config"
	"github.com/explore-jakarta/recocache/pkg/models"
)

// Recorder receives the outcome of every lookup.
type Recorder interface {
	Record(ctx context.Context, rec models.LookupRecord) error
}

// Options configures a Gateway. Zero values fall back to the defaults in
// package config.
type Options struct {
	TTL  config.TTLConfig
	TopN int
	// Timeout bounds each remote call. Zero means no timeout.
	Timeout time.Duration
	// Dedupe collapses concurrent misses for the same key into one remote call.
	Dedupe   bool
	Logger   *slog.Logger
	Recorder Recorder
}

// Result is a lookup answer plus whether it came from the cache.
type Result struct {
	Places []models.Place
	Key    string
	Cached bool
}

// Gateway answers recommendation lookups from the cache and falls back to
// the Fetcher on a miss. Returned slices are shared with the cache and must
// not be modified.
type Gateway struct {
	store   *cache.Store[[]models.Place]
	fetcher Fetcher
	ttl     config.TTLConfig
	topN    int
	timeout time.Duration
	dedupe  bool
	flights singleflight.Group
	log     *slog.Logger

	// userMu orders user invalidations against user-result writes.
	// userEpoch counts invalidations; a user fetch that started in an
	// older epoch does not write its result.
	userMu    sync.Mutex
	userEpoch uint64
	rec     Recorder
}

// New creates a Gateway over store and fetcher.
func New(store *cache.Store[[]models.Place], fetcher Fetcher, opts Options) *Gateway {
	def := config.DefaultTTL()
	ttl := opts.TTL
	if ttl.Place == 0 {
		ttl.Place = def.Place
	}
	if ttl.User == 0 {
		ttl.User = def.User
	}
	if ttl.Nearby == 0 {
		ttl.Nearby = def.Nearby
	}
	if ttl.Category == 0 {
		ttl.Category = def.Category
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = config.Default().Upstream.TopN
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Gateway{
		store:   store,
		fetcher: fetcher,
		ttl:     ttl,
		topN:    topN,
		timeout: opts.Timeout,
		dedupe:  opts.Dedupe,
		log:     log,
		rec:     opts.Recorder,
	}
}

// Store returns the underlying cache, for diagnostics.
func (g *Gateway) Store() *cache.Store[[]models.Place] {
	return g.store
}

// ByPlace returns places similar to placeID.
func (g *Gateway) ByPlace(ctx context.Context, placeID int64) ([]models.Place, error) {
	return g.places(ctx, PlaceRequest(placeID))
}

// ByUser returns personalized recommendations for userID.
func (g *Gateway) ByUser(ctx context.Context, userID int64) ([]models.Place, error) {
	return g.places(ctx, UserRequest(userID))
}

// ByCategory returns recommendations for a set of categories. The order of
// categories does not affect caching.
func (g *Gateway) ByCategory(ctx context.Context, categories []string) ([]models.Place, error) {
	return g.places(ctx, CategoryRequest(categories))
}

// Nearby returns places around lat/lon. Queries within the same ~100m grid
// cell share a cache entry.
func (g *Gateway) Nearby(ctx context.Context, lat, lon float64) ([]models.Place, error) {
	return g.places(ctx, NearbyRequest(lat, lon))
}

func (g *Gateway) places(ctx context.Context, req Request) ([]models.Place, error) {
	res, err := g.Lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Places, nil
}

// InvalidateUser drops the cached personalized results of userID. Call it
// after a rating write for that user succeeds. Place, nearby and category
// entries are left alone.
// A lookup for userID already in flight is detached, so later callers make
// a fresh remote call and the stale result is not written back.
func (g *Gateway) InvalidateUser(userID int64) int {
	g.userMu.Lock()
	g.userEpoch++
	n := g.store.ClearUserCache(userID)
	g.flights.Forget(cache.UserKey(userID).String())
	g.userMu.Unlock()
	g.log.Info("user cache invalidated", "user_id", userID, "removed", n)
	return n
}

// TTLFor returns the cache lifetime used for a lookup kind.
func (g *Gateway) TTLFor(kind cache.Kind) time.Duration {
	switch kind {
	case cache.KindPlace:
		return g.ttl.Place
	case cache.KindUser:
		return g.ttl.User
	case cache.KindNearby:
		return g.ttl.Nearby
	case cache.KindCategory:
		return g.ttl.Category
	default:
		return 0
	}
}

// Lookup serves req from the cache or the remote service. A failed remote
// call returns a *LookupError and leaves the cache unchanged.
func (g *Gateway) Lookup(ctx context.Context, req Request) (Result, error) {
	k, err := req.Key()
	if err != nil {
		return Result{}, &LookupError{Kind: req.Kind, Err: err}
	}
	key := k.String()

	if places, ok := g.store.Get(key); ok {
		g.log.Debug("recommendations from cache", "kind", req.Kind, "key", key)
		g.record(ctx, models.LookupRecord{Kind: string(req.Kind), Key: key, Outcome: models.OutcomeHit, Results: len(places)})
		return Result{Places: places, Key: key, Cached: true}, nil
	}

	start := time.Now()
	places, err := g.fetch(ctx, req, key)
	latency := time.Since(start)

	if err != nil {
		g.log.Warn("recommendation lookup failed", "kind", req.Kind, "key", key, "latency_ms", latency.Milliseconds(), "error", err)
		g.record(ctx, models.LookupRecord{Kind: string(req.Kind), Key: key, Outcome: models.OutcomeError, LatencyMs: latency.Milliseconds(), Error: err.Error()})
		return Result{}, &LookupError{Kind: req.Kind, Key: key, Err: err}
	}

	g.log.Info("recommendations cached", "kind", req.Kind, "key", key, "results", len(places), "latency_ms", latency.Milliseconds())
	g.record(ctx, models.LookupRecord{Kind: string(req.Kind), Key: key, Outcome: models.OutcomeMiss, Results: len(places), LatencyMs: latency.Milliseconds()})
	return Result{Places: places, Key: key}, nil
}

// fetch performs the remote call and populates the cache on success. With
// dedupe enabled, concurrent callers for one key share a single call; each
// caller still honours its own ctx while waiting.
func (g *Gateway) fetch(ctx context.Context, req Request, key string) ([]models.Place, error) {
	if !g.dedupe {
		return g.fetchAndStore(ctx, req, key)
	}

	// The shared call must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)
	ch := g.flights.DoChan(key, func() (any, error) {
		return g.fetchAndStore(flightCtx, req, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			g.log.Debug("shared in-flight lookup", "key", key)
		}
		return res.Val.([]models.Place), nil
	}
}

func (g *Gateway) fetchAndStore(ctx context.Context, req Request, key string) ([]models.Place, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if req.Kind != cache.KindUser {
		places, err := req.fetch(ctx, g.fetcher, g.topN)
		if err != nil {
			return nil, err
		}
		places = nonNil(places)
		g.store.Set(key, places, g.TTLFor(req.Kind))
		return places, nil
	}

	g.userMu.Lock()
	epoch := g.userEpoch
	g.userMu.Unlock()

	places, err := req.fetch(ctx, g.fetcher, g.topN)
	if err != nil {
		return nil, err
	}
	places = nonNil(places)

	g.userMu.Lock()
	defer g.userMu.Unlock()
	if g.userEpoch != epoch {
		g.log.Debug("user result superseded by invalidation", "key", key)
		return places, nil
	}
	g.store.Set(key, places, g.TTLFor(req.Kind))
	return places, nil
}

func nonNil(places []models.Place) []models.Place {
	if places == nil {
		return []models.Place{}
	}
	return places
}

func (g *Gateway) record(ctx context.Context, rec models.LookupRecord) {
	if g.rec == nil {
		return
	}
	rec.CreatedAt = time.Now().UTC()
	if err := g.rec.Record(ctx, rec); err != nil {
		g.log.Warn("record lookup", "key", rec.Key, "error", err)
	}
}
