package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store[string], *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	s := New[string](WithClock(clk.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s, clk
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set("place:1", "museum", time.Minute)
	v, ok := s.Get("place:1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v != "museum" {
		t.Errorf("expected museum, got %s", v)
	}
	if s.Misses() != 0 {
		t.Errorf("expected 0 misses, got %d", s.Misses())
	}
	if s.Hits() != 1 {
		t.Errorf("expected 1 hit, got %d", s.Hits())
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	if _, ok := s.Get("place:404"); ok {
		t.Fatal("expected miss for unknown key")
	}
	if s.Misses() != 1 {
		t.Errorf("expected 1 miss, got %d", s.Misses())
	}
}

func TestSetOverwrites(t *testing.T) {
	s, clk := newTestStore(t)

	s.Set("user:1", "v1", time.Minute)
	clk.Advance(50 * time.Second)
	s.Set("user:1", "v2", time.Minute)
	clk.Advance(50 * time.Second)

	// The second write restarted the lifetime.
	v, ok := s.Get("user:1")
	if !ok {
		t.Fatal("expected overwritten entry to be live")
	}
	if v != "v2" {
		t.Errorf("expected v2, got %s", v)
	}
}

func TestExpiredEntryIsDeleted(t *testing.T) {
	s, clk := newTestStore(t)

	s.Set("user:7", "placeA", 5*time.Minute)
	if _, ok := s.Get("user:7"); !ok {
		t.Fatal("expected hit before expiry")
	}
	if s.Hits() != 1 || s.Misses() != 0 {
		t.Fatalf("expected hits=1 misses=0, got hits=%d misses=%d", s.Hits(), s.Misses())
	}

	clk.Advance(6 * time.Minute)

	if _, ok := s.Get("user:7"); ok {
		t.Fatal("expected miss after expiry")
	}
	if s.Hits() != 1 || s.Misses() != 1 {
		t.Fatalf("expected hits=1 misses=1, got hits=%d misses=%d", s.Hits(), s.Misses())
	}
	if s.Size() != 0 {
		t.Errorf("expected expired entry removed, size=%d", s.Size())
	}
	if _, ok := s.Get("user:7"); ok {
		t.Fatal("expected entry to stay gone")
	}
	if s.Misses() != 2 {
		t.Errorf("expected 2 misses, got %d", s.Misses())
	}
}

func TestTTLBoundary(t *testing.T) {
	s, clk := newTestStore(t)

	s.Set("place:1", "x", time.Minute)
	clk.Advance(time.Minute)
	if _, ok := s.Get("place:1"); !ok {
		t.Fatal("entry should be live at exactly ttl")
	}
	clk.Advance(time.Nanosecond)
	if _, ok := s.Get("place:1"); ok {
		t.Fatal("entry should expire just past ttl")
	}
}

func TestNonPositiveTTL(t *testing.T) {
	s, clk := newTestStore(t)

	s.Set("place:1", "zero", 0)
	s.Set("place:2", "negative", -time.Second)

	if _, ok := s.Get("place:2"); ok {
		t.Error("negative ttl should never be live")
	}
	clk.Advance(time.Millisecond)
	if _, ok := s.Get("place:1"); ok {
		t.Error("zero ttl should expire once the clock moves")
	}
}

func TestCleanup(t *testing.T) {
	s, clk := newTestStore(t)

	s.Set("place:1", "short", time.Minute)
	s.Set("place:2", "long", time.Hour)
	clk.Advance(2 * time.Minute)

	if s.Size() != 2 {
		t.Fatalf("size counts unswept entries, expected 2, got %d", s.Size())
	}
	if n := s.Cleanup(); n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if s.Size() != 1 {
		t.Errorf("expected 1 entry after cleanup, got %d", s.Size())
	}
	if s.Hits() != 0 || s.Misses() != 0 {
		t.Error("cleanup must not touch counters")
	}
}

func TestClearKeepsCounters(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set("place:1", "a", time.Minute)
	s.Set("user:1", "b", time.Minute)
	s.Get("place:1")
	s.Get("nearby:0.000,0.000")

	s.Clear()

	if s.Size() != 0 {
		t.Errorf("expected 0 entries after clear, got %d", s.Size())
	}
	if s.Hits() != 1 || s.Misses() != 1 {
		t.Errorf("expected counters kept, got hits=%d misses=%d", s.Hits(), s.Misses())
	}
}

func TestClearByPattern(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set("category:Museum,Park", "a", time.Minute)
	s.Set("category:Park", "b", time.Minute)
	s.Set("place:12", "c", time.Minute)
	s.Set("user:3", "d", time.Minute)

	if n := s.ClearByPattern("Park"); n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	for _, k := range []string{"category:Museum,Park", "category:Park"} {
		if _, ok := s.Get(k); ok {
			t.Errorf("expected %s cleared", k)
		}
	}
	for _, k := range []string{"place:12", "user:3"} {
		if _, ok := s.Get(k); !ok {
			t.Errorf("expected %s untouched", k)
		}
	}
}

func TestClearByPatternIsLiteral(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set("nearby:1.000,2.000", "a", time.Minute)
	s.Set("nearby:10002000", "b", time.Minute)

	// "." is not a wildcard.
	if n := s.ClearByPattern("1.0"); n != 1 {
		t.Errorf("expected 1 cleared, got %d", n)
	}
}

func TestClearUserCacheNoAliasing(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set(UserKey(7).String(), "u7", time.Minute)
	s.Set(UserKey(70).String(), "u70", time.Minute)
	s.Set(UserKey(17).String(), "u17", time.Minute)
	s.Set(PlaceKey(7).String(), "p7", time.Minute)
	s.Set(CategoryKey([]string{"user:7"}).String(), "c", time.Minute)
	s.Set(NearbyKey(7, 7).String(), "n", time.Minute)

	if n := s.ClearUserCache(7); n != 1 {
		t.Fatalf("expected exactly 1 cleared, got %d", n)
	}
	if _, ok := s.Get("user:7"); ok {
		t.Error("expected user:7 cleared")
	}
	for _, k := range []string{"user:70", "user:17", "place:7", "category:user:7", "nearby:7.000,7.000"} {
		if _, ok := s.Get(k); !ok {
			t.Errorf("expected %s to survive", k)
		}
	}
}

func TestClearUserCacheNoEntries(t *testing.T) {
	s, _ := newTestStore(t)

	if n := s.ClearUserCache(99); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestKeysAndStats(t *testing.T) {
	s, clk := newTestStore(t)

	s.Set("place:1", "a", time.Minute)
	s.Set("user:2", "b", time.Minute)
	s.Set("user:3", "c", time.Hour)
	s.Set("nearby:1.000,2.000", "d", time.Second)
	s.Get("place:1")
	s.Get("place:9")
	clk.Advance(2 * time.Second)

	keys := s.Keys()
	want := []string{"place:1", "user:2", "user:3"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, keys)
	}

	stats := s.Stats()
	if stats.Entries != 4 {
		t.Errorf("expected 4 raw entries, got %d", stats.Entries)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected hits=1 misses=1, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", stats.HitRate)
	}
	if stats.Breakdown["user"] != 2 || stats.Breakdown["place"] != 1 || stats.Breakdown["nearby"] != 0 {
		t.Errorf("unexpected breakdown: %v", stats.Breakdown)
	}
}

func TestSweeperRemovesExpired(t *testing.T) {
	s := New[string]()
	defer s.Close()

	s.Set("place:1", "a", time.Millisecond)
	s.StartSweeper(5 * time.Millisecond)
	s.StartSweeper(5 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for s.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not remove expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New[string]()
	s.StartSweeper(time.Hour)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 200 {
				key := UserKey(int64(j % 10)).String()
				s.Set(key, "v", time.Minute)
				s.Get(key)
				if j%50 == 0 {
					s.ClearUserCache(int64(i % 10))
					s.Cleanup()
				}
			}
		}(i)
	}
	wg.Wait()

	if got := s.Hits() + s.Misses(); got != 16*200 {
		t.Errorf("expected %d gets counted, got %d", 16*200, got)
	}
}
