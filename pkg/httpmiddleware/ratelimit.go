package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures RateLimiter.
type RateLimitConfig struct {
	// Max requests per key within Window.
	Max int
	// Window is the sliding window length.
	Window time.Duration
	// KeyFunc selects the bucket for a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window holds the counters of two consecutive fixed windows. The sliding
// count is prev weighted by its overlap with [now-Window, now] plus curr.
type window struct {
	start time.Time
	prev  float64
	curr  float64
}

// RateLimiter is a per-key sliding window limiter.
type RateLimiter struct {
	max    int
	size   time.Duration
	keyOf  func(*http.Request) string
	now    func() time.Time
	mu     sync.Mutex
	counts map[string]*window
}

// NewRateLimiter creates a RateLimiter. Stale keys are only evicted while Run
// is active.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &RateLimiter{
		max:    cfg.Max,
		size:   cfg.Window,
		keyOf:  cfg.KeyFunc,
		now:    time.Now,
		counts: make(map[string]*window),
	}
}

// take records a hit for key. It reports whether the hit is within the limit
// together with the remaining budget and the end of the current window.
func (l *RateLimiter) take(key string, now time.Time) (ok bool, remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.size)
	w, found := l.counts[key]
	switch {
	case !found:
		w = &window{start: start}
		l.counts[key] = w
	case start.Sub(w.start) >= 2*l.size:
		w.start, w.prev, w.curr = start, 0, 0
	case !start.Equal(w.start):
		w.start, w.prev, w.curr = start, w.curr, 0
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(l.size)
	used := w.prev*overlap + w.curr
	reset = w.start.Add(l.size)
	if used >= float64(l.max) {
		return false, 0, reset
	}
	w.curr++
	return true, max(0, int(float64(l.max)-used-1)), reset
}

func (l *RateLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.counts {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.counts, key)
		}
	}
}

// Run evicts idle keys every two windows until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(2 * l.size)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

// Middleware enforces the limit, answering 429 with a JSON error once a key
// exhausts its budget. X-RateLimit-* headers are set on every response.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := l.now()
			ok, remaining, reset := l.take(l.keyOf(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				wait := math.Ceil(max(0, reset.Sub(now).Seconds()))
				h.Set("Retry-After", strconv.Itoa(int(wait)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is a shorthand for NewRateLimiter(cfg).Middleware() without
// background eviction.
func RateLimit(cfg RateLimitConfig) Middleware {
	return NewRateLimiter(cfg).Middleware()
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
