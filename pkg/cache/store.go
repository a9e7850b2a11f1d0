// Package cache implements the in-process TTL store that memoizes
// recommendation lookups.
package cache

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/explore-jakarta/recocache/pkg/models"
)

// DefaultSweepInterval is how often the background sweeper runs Cleanup.
const DefaultSweepInterval = 10 * time.Minute

type entry[V any] struct {
	key      Key
	typed    bool
	value    V
	storedAt time.Time
	ttl      time.Duration
}

// live reports whether the entry is still valid at now. An entry stays live
// while now - storedAt <= ttl.
func (e *entry[V]) live(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used by the background sweeper.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Store is a string-keyed cache where every entry carries its own TTL.
// Expiry is evaluated lazily on Get; the optional sweeper only bounds memory.
//
// All operations serialize on one mutex: Get deletes expired entries and so
// is a write as far as locking is concerned.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]

	hits   atomic.Int64
	misses atomic.Int64

	now    func() time.Time
	logger *slog.Logger

	sweepOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates an empty Store.
func New[V any](opts ...Option) *Store[V] {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[V]{
		entries: make(map[string]*entry[V]),
		now:     o.now,
		logger:  o.logger,
		done:    make(chan struct{}),
	}
}

// Set stores value under key, replacing any existing entry. A ttl <= 0 is
// accepted and makes the entry expire as soon as the clock moves.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) {
	k, typed := ParseKey(key)
	e := &entry[V]{
		key:      k,
		typed:    typed,
		value:    value,
		storedAt: s.now(),
		ttl:      ttl,
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Get returns the value for key if present and live. Expired entries are
// deleted. Every call counts as either a hit or a miss.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses.Add(1)
		return zero, false
	}
	if !e.live(s.now()) {
		delete(s.entries, key)
		s.misses.Add(1)
		return zero, false
	}
	s.hits.Add(1)
	return e.value, true
}

// Cleanup deletes every expired entry and returns how many were removed.
func (s *Store[V]) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !e.live(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Clear deletes all entries. Hit and miss counters are kept.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()
}

// ClearByPattern deletes every entry whose key contains substr literally and
// returns the number deleted.
func (s *Store[V]) ClearByPattern(substr string) int {
	return s.deleteWhere(func(key string, _ *entry[V]) bool {
		return strings.Contains(key, substr)
	})
}

// ClearKind deletes every entry of the given kind whose identifier equals id.
func (s *Store[V]) ClearKind(kind Kind, id string) int {
	return s.deleteWhere(func(_ string, e *entry[V]) bool {
		return e.typed && e.key.Kind == kind && e.key.ID == id
	})
}

// ClearUserCache deletes the by-user entries of userID only. Matching is on
// the parsed key, so user 7 never clears user 70 or a place key containing 7.
func (s *Store[V]) ClearUserCache(userID int64) int {
	k := UserKey(userID)
	return s.ClearKind(k.Kind, k.ID)
}

func (s *Store[V]) deleteWhere(match func(string, *entry[V]) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.entries {
		if match(k, e) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Size returns the number of stored entries, including expired ones that
// have not been swept yet.
func (s *Store[V]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Hits returns the number of Get calls that returned a value.
func (s *Store[V]) Hits() int64 { return s.hits.Load() }

// Misses returns the number of Get calls that found nothing live.
func (s *Store[V]) Misses() int64 { return s.misses.Load() }

// Keys returns the live keys in sorted order. Unlike Get it neither deletes
// expired entries nor touches the counters.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	now := s.now()
	keys := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if e.live(now) {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()

	slices.Sort(keys)
	return keys
}

// Stats returns a snapshot of counters, size, and a per-kind breakdown of
// live keys.
func (s *Store[V]) Stats() models.CacheStats {
	keys := s.Keys()
	breakdown := make(map[string]int, len(Kinds))
	for _, k := range Kinds {
		breakdown[string(k)] = 0
	}
	for _, key := range keys {
		if k, ok := ParseKey(key); ok {
			breakdown[string(k.Kind)]++
		}
	}

	hits, misses := s.Hits(), s.Misses()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return models.CacheStats{
		Entries:   int64(s.Size()),
		Hits:      hits,
		Misses:    misses,
		HitRate:   rate,
		Breakdown: breakdown,
		Keys:      keys,
	}
}

// StartSweeper runs Cleanup every interval until Close is called. Calling it
// more than once has no effect.
func (s *Store[V]) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s.sweepOnce.Do(func() {
		s.wg.Add(1)
		go s.sweepLoop(interval)
	})
}

func (s *Store[V]) sweepLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.Cleanup(); n > 0 {
				s.logger.Debug("cache sweep", "removed", n, "size", s.Size())
			}
		}
	}
}

// Close stops the sweeper and waits for it to exit. Entries stay readable.
func (s *Store[V]) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}
