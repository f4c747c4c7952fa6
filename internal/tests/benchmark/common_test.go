package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv/internal/storage/memory"
)

// KeyCounts defines the store sizes for benchmarking.
var KeyCounts = []int{1000, 10000, 100000}

// ShardCounts defines the store shard counts compared under contention.
var ShardCounts = []int{1, 16, 256}

// newKey generates a new random key.
func newKey() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return "key:" + strings.ToLower(id.String())
}

// prefillStore fills store with count keys, a quarter of them expiring.
func prefillStore(ctx context.Context, store *memory.Store, count int) []string {
	keys := make([]string, count)
	for i := 0; i < count; i++ {
		keys[i] = newKey()
		if i%4 == 0 {
			store.SetWithTTL(ctx, keys[i], "value", int64(time.Hour/time.Millisecond))
		} else {
			store.Set(ctx, keys[i], "value")
		}
	}
	return keys
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs a benchmark function with various store sizes.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
