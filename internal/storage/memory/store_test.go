package memory

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_GetMissing(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, key := range []string{"missing", "", "k:1"} {
		if v, ok := store.Get(ctx, key); ok {
			t.Errorf("Get(%q) = (%q, true), want absent", key, v)
		}
	}
}

func TestStore_SetGetNoExpiry(t *testing.T) {
	clock := newFakeClock()
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "k", "v")

	for _, step := range []time.Duration{0, time.Hour, 24 * time.Hour * 365 * 100} {
		clock.Advance(step)
		v, ok := store.Get(ctx, "k")
		if !ok || v != "v" {
			t.Fatalf("after %v: Get = (%q, %v), want (v, true)", step, v, ok)
		}
	}
}

func TestStore_SetWithTTL(t *testing.T) {
	clock := newFakeClock()
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	store.SetWithTTL(ctx, "k", "v", 100)

	clock.Advance(99 * time.Millisecond)
	if v, ok := store.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("before expiry: Get = (%q, %v), want (v, true)", v, ok)
	}

	// Absent once elapsed >= ttl.
	clock.Advance(time.Millisecond)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("at expiry: Get should report absent")
	}

	clock.Advance(time.Hour)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("after expiry: Get should report absent")
	}
}

func TestStore_ZeroTTLIsImmediatelyExpired(t *testing.T) {
	clock := newFakeClock()
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	store.SetWithTTL(ctx, "k", "v", 0)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("ttl 0 should be absent on read")
	}
}

func TestStore_HugeTTLClampsToNoExpiry(t *testing.T) {
	clock := newFakeClock()
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	store.SetWithTTL(ctx, "k", "v", NoExpiry-1)

	e, ok := store.entries.Get("k")
	if !ok {
		t.Fatal("entry missing")
	}
	if e.ExpiresAt != NoExpiry {
		t.Errorf("ExpiresAt = %d, want NoExpiry", e.ExpiresAt)
	}
	if v, ok := store.Get(ctx, "k"); !ok || v != "v" {
		t.Errorf("Get = (%q, %v), want (v, true)", v, ok)
	}
}

func TestStore_Overwrite(t *testing.T) {
	clock := newFakeClock()
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "k", "v1")
	store.Set(ctx, "k", "v2")
	if v, _ := store.Get(ctx, "k"); v != "v2" {
		t.Fatalf("Get = %q, want v2", v)
	}

	// Overwriting replaces the expiry too.
	store.SetWithTTL(ctx, "k", "v3", 10)
	clock.Advance(10 * time.Millisecond)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("v3 should have expired")
	}

	store.Set(ctx, "k", "v4")
	clock.Advance(time.Hour)
	if v, ok := store.Get(ctx, "k"); !ok || v != "v4" {
		t.Fatalf("Get = (%q, %v), want (v4, true)", v, ok)
	}
}

func TestStore_LazyExpiryRetainsEntries(t *testing.T) {
	clock := newFakeClock()
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	store.SetWithTTL(ctx, "a", "1", 10)
	store.SetWithTTL(ctx, "b", "2", 1000)
	store.Set(ctx, "c", "3")

	clock.Advance(20 * time.Millisecond)
	if _, ok := store.Get(ctx, "a"); ok {
		t.Fatal("a should be expired")
	}

	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (expired entries are not purged)", store.Len())
	}

	st := store.Stats(ctx)
	if st.Keys != 3 || st.Expired != 1 {
		t.Errorf("Stats() = %+v, want {Keys:3 Expired:1}", st)
	}
}

func TestStore_BinarySafeValues(t *testing.T) {
	store := New()
	ctx := context.Background()

	value := "line1\r\nline2\x00\xff"
	store.Set(ctx, "bin", value)
	if v, ok := store.Get(ctx, "bin"); !ok || v != value {
		t.Fatalf("Get = (%q, %v), want (%q, true)", v, ok, value)
	}
}

func TestEntry_ExpiredAt(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		now   int64
		want  bool
	}{
		{"no expiry", Entry{ExpiresAt: NoExpiry}, 1 << 60, false},
		{"future", Entry{ExpiresAt: 100}, 99, false},
		{"exactly now", Entry{ExpiresAt: 100}, 100, true},
		{"past", Entry{ExpiresAt: 100}, 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.ExpiredAt(tt.now); got != tt.want {
				t.Errorf("ExpiredAt(%d) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

// ============================================================
// Concurrency
// ============================================================

func TestStore_ConcurrentSetSameKeyNeverMixes(t *testing.T) {
	clock := newFakeClock()
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	// Writer A stores a value with no expiry; writer B stores a different value
	// with a 1ms ttl. A reader must never see A's value with B's expiry or vice versa.
	const iterations = 2000
	var wg sync.WaitGroup
	var bad atomic.Int64

	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			store.Set(ctx, "k", "forever")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			store.SetWithTTL(ctx, "k", "short", 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			e, ok := store.entries.Get("k")
			if !ok {
				continue
			}
			switch e.Value {
			case "forever":
				if e.ExpiresAt != NoExpiry {
					bad.Add(1)
				}
			case "short":
				if e.ExpiresAt == NoExpiry {
					bad.Add(1)
				}
			default:
				bad.Add(1)
			}
		}
	}()
	wg.Wait()

	if n := bad.Load(); n != 0 {
		t.Fatalf("observed %d mixed entries", n)
	}
}

func TestStore_ConcurrentDistinctKeys(t *testing.T) {
	for _, shards := range []int{1, 16} {
		t.Run("shards="+strconv.Itoa(shards), func(t *testing.T) {
			store := New(WithShardCount(shards))
			ctx := context.Background()

			var wg sync.WaitGroup
			for g := 0; g < 20; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						key := strconv.Itoa(g) + ":" + strconv.Itoa(i)
						store.Set(ctx, key, key)
						if v, ok := store.Get(ctx, key); !ok || v != key {
							t.Errorf("Get(%q) = (%q, %v)", key, v, ok)
							return
						}
					}
				}(g)
			}
			wg.Wait()

			if store.Len() != 2000 {
				t.Errorf("Len() = %d, want 2000", store.Len())
			}
		})
	}
}
