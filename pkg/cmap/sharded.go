// Package cmap provides a concurrent-safe sharded map keyed by strings.
package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards. A single shard means
// every operation on the map is serialized through one lock.
const DefaultShardCount = 1

// Map is a concurrent-safe map from string keys to values of type V.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint32
}

type shard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

// Option configures a Map.
type Option func(*options)

type options struct {
	shardCount int
}

// WithShardCount sets the number of shards. The count must be a power of 2;
// other values fall back to DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

// New creates a new map.
func New[V any](opts ...Option) *Map[V] {
	o := options{shardCount: DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}

	n := o.shardCount
	if !validShardCount(n) {
		n = DefaultShardCount
	}

	m := &Map[V]{
		shards:    make([]*shard[V], n),
		shardMask: uint32(n - 1),
	}
	for i := 0; i < n; i++ {
		m.shards[i] = &shard[V]{
			items: make(map[string]V),
		}
	}
	return m
}

func validShardCount(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// getShard returns the shard owning key.
func (m *Map[V]) getShard(key string) *shard[V] {
	if len(m.shards) == 1 {
		return m.shards[0]
	}
	return m.shards[murmur3.Sum32([]byte(key))&m.shardMask]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.items[key]
	return val, ok
}

// Set stores a key-value pair, replacing any previous value.
func (m *Map[V]) Set(key string, value V) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete removes a key.
func (m *Map[V]) Delete(key string) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Count returns the total number of items.
func (m *Map[V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.mu.Lock()
		count += len(s.items)
		s.mu.Unlock()
	}
	return count
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int {
	return len(m.shards)
}
