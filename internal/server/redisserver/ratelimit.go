package redisserver

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// limiterRegistry shares one token bucket between all connections from the
// same remote IP. Buckets are dropped when the last such connection closes.
type limiterRegistry struct {
	mu       sync.Mutex
	perSec   int
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter *rate.Limiter
	refs    int
}

func newLimiterRegistry(perSec int) *limiterRegistry {
	return &limiterRegistry{
		perSec:   perSec,
		limiters: make(map[string]*limiterEntry),
	}
}

// Acquire returns the limiter for ip and takes a reference on it.
// rate.Limit(perSec) requests per second, burst = perSec.
func (r *limiterRegistry) Acquire(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(r.perSec), r.perSec)}
		r.limiters[ip] = e
	}
	e.refs++
	return e.limiter
}

// Release drops a reference taken by Acquire.
func (r *limiterRegistry) Release(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.limiters[ip]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.limiters, ip)
	}
}

// Len returns the number of tracked IPs.
func (r *limiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// remoteIP returns the host part of addr, or the whole address string when
// it has no port (for example net.Pipe).
func remoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
