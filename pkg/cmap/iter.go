// Package cmap provides a concurrent-safe sharded map keyed by strings.
package cmap

// Range iterates over all key-value pairs.
//
// The callback returns false to stop iteration. Locks are taken shard by
// shard, so with more than one shard the view may not be consistent.
// The callback must not call back into the map.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
	}
}

// Keys returns all keys.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0, m.Count())
	m.Range(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
