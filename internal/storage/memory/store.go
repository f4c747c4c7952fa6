// Package memory provides the in-memory key-value store for respkv.
package memory

import (
	"context"
	"math"
	"time"

	"github.com/yndnr/respkv/pkg/cmap"
)

// NoExpiry is the ExpiresAt sentinel for entries that never expire.
const NoExpiry int64 = math.MaxInt64

// Entry is the stored state of one key.
type Entry struct {
	Value string
	// ExpiresAt is in milliseconds since the Unix epoch, or NoExpiry.
	ExpiresAt int64
}

// ExpiredAt reports whether the entry is logically deleted at nowMillis.
func (e Entry) ExpiredAt(nowMillis int64) bool {
	return e.ExpiresAt <= nowMillis
}

// Stats is a point-in-time view of the store contents.
type Stats struct {
	// Keys is the number of physically stored entries.
	Keys int
	// Expired is the number of stored entries already past their expiry.
	// They stay in memory until overwritten.
	Expired int
}

// Store is a concurrency-safe key-value store with lazy expiry.
//
// Every Get and Set is one atomic step on the underlying map. Expired
// entries are filtered out at read time and never swept.
type Store struct {
	entries *cmap.Map[Entry]
	now     func() time.Time
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shardCount int
	now        func() time.Time
}

// WithShardCount spreads keys over n independently locked shards.
// The default of 1 keeps the whole store behind a single lock.
func WithShardCount(n int) Option {
	return func(o *storeOptions) {
		o.shardCount = n
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		o.now = now
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	o := storeOptions{
		shardCount: cmap.DefaultShardCount,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		entries: cmap.New[Entry](cmap.WithShardCount(o.shardCount)),
		now:     o.now,
	}
}

// Get returns the value stored for key.
// Missing keys and keys whose expiry has passed both report ok == false.
func (s *Store) Get(_ context.Context, key string) (string, bool) {
	e, ok := s.entries.Get(key)
	if !ok || e.ExpiredAt(s.nowMillis()) {
		return "", false
	}
	return e.Value, true
}

// Set stores value under key with no expiry, replacing any previous entry.
func (s *Store) Set(_ context.Context, key, value string) {
	s.entries.Set(key, Entry{Value: value, ExpiresAt: NoExpiry})
}

// SetWithTTL stores value under key, expiring ttlMillis milliseconds from now.
// The previous entry, value and expiry alike, is replaced in one step.
// Expiries that would overflow are clamped to NoExpiry.
func (s *Store) SetWithTTL(_ context.Context, key, value string, ttlMillis int64) {
	// ttl 0 gives ExpiresAt == now: stored, but never visible to Get.
	s.entries.Set(key, Entry{Value: value, ExpiresAt: expiresAt(s.nowMillis(), ttlMillis)})
}

// Len returns the number of physically stored entries, expired ones included.
func (s *Store) Len() int {
	return s.entries.Count()
}

// Stats returns the number of stored and expired-but-retained entries.
// It scans every entry, holding each shard's lock for that shard's scan.
func (s *Store) Stats(_ context.Context) Stats {
	now := s.nowMillis()
	var st Stats
	s.entries.Range(func(_ string, e Entry) bool {
		st.Keys++
		if e.ExpiredAt(now) {
			st.Expired++
		}
		return true
	})
	return st
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

func expiresAt(nowMillis, ttlMillis int64) int64 {
	if ttlMillis < 0 {
		return nowMillis
	}
	if ttlMillis >= NoExpiry-nowMillis {
		return NoExpiry
	}
	return nowMillis + ttlMillis
}
