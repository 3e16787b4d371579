package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/psantana5/chrono/pkg/clock"
	"github.com/psantana5/chrono/pkg/stopwatch"
	"golang.org/x/time/rate"
)

type bucket struct {
	limiter *rate.Limiter
	// time since last use
	idle *stopwatch.Stopwatch
}

// Limiter hands out one token bucket per key
type Limiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	src     clock.Source
}

// NewLimiter creates a limiter allowing rps requests per second per key
// with bursts of up to burst requests
func NewLimiter(rps float64, burst int) *Limiter {
	return NewLimiterWithSource(rps, burst, clock.System())
}

// NewLimiterWithSource is NewLimiter with an explicit idle clock
func NewLimiterWithSource(rps float64, burst int, src clock.Source) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		src:     src,
	}
}

// Allow reports whether a request for key may proceed now
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			limiter: rate.NewLimiter(l.rps, l.burst),
			idle:    stopwatch.New(l.src),
		}
		l.buckets[key] = b
	}
	b.idle.Restart()
	l.mu.Unlock()

	return b.limiter.Allow()
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// CleanupOldLimiters drops keys that have been idle for longer than maxAge
// and returns how many were removed
func (l *Limiter) CleanupOldLimiters(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.idle.Elapsed() > maxAge {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests over the limit with 429
func (l *Limiter) Middleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFunc(r)) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyFunc keys requests by client address, preferring the first
// X-Forwarded-For hop
func IPKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// APIKeyFunc keys requests by their Authorization header
func APIKeyFunc(r *http.Request) string {
	return r.Header.Get("Authorization")
}
