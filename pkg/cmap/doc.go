// Package cmap provides the concurrent map backing the respkv store.
//
// Keys are strings; a key's shard is chosen with murmur3. Each shard is a
// plain map guarded by its own sync.Mutex, so every Get, Set and Delete is a
// single atomic step. With the default of one shard the whole map sits behind
// one lock.
//
// Usage:
//
//	m := cmap.New[Entry](cmap.WithShardCount(16))
//	m.Set("key", entry)
//	val, ok := m.Get("key")
package cmap
