// Package memory provides the in-memory key-value store for respkv.
//
// Each key maps to an Entry holding the value and an absolute expiry in
// milliseconds since the epoch (NoExpiry when none was given).
//
// Expiry is lazy: Get treats an entry whose ExpiresAt is not after the
// current time as absent, but nothing removes it. Memory for expired keys
// that are never read or overwritten is retained; Stats reports how many such
// entries are held.
//
// Thread Safety:
//
// All operations are thread-safe. By default a single lock guards the whole
// map; WithShardCount trades that for per-shard locks.
package memory
