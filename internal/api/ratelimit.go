package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/BibleEcho/internal/config"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
	"github.com/FocuswithJustin/BibleEcho/internal/server"
)

// DefaultBurst is used when the configuration sets no burst size.
const DefaultBurst = 10

// visitor is the limiter state for one client address.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	rpm        int
	limit      rate.Limit
	burst      int
	cleanupTTL time.Duration
	now        func() time.Time
}

// NewRateLimiter creates a limiter refilling RequestsPerMinute tokens per
// minute up to Burst.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		visitors:   make(map[string]*visitor),
		rpm:        cfg.RequestsPerMinute,
		limit:      rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:      burst,
		cleanupTTL: 5 * time.Minute,
		now:        time.Now,
	}
}

// Burst returns the effective burst size.
func (rl *RateLimiter) Burst() int {
	return rl.burst
}

func (rl *RateLimiter) visitor(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Allow reports whether a request from ip may proceed. When it may not,
// retryAfter is the wait until a token is available.
func (rl *RateLimiter) Allow(ip string) (ok bool, retryAfter time.Duration) {
	now := rl.now()
	lim := rl.visitor(ip, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Remaining returns the whole tokens left for ip.
func (rl *RateLimiter) Remaining(ip string) int {
	now := rl.now()
	tokens := rl.visitor(ip, now).TokensAt(now)
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

// Cleanup drops visitors idle for longer than the cleanup TTL.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.cleanupTTL {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every minute until ctx is canceled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := server.ClientIP(r)

		ok, wait := rl.Allow(ip)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.rpm))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining(ip)))

		if !ok {
			retryAfter := int(math.Ceil(wait.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			logging.SecurityEvent("rate_limited", "ratelimit",
				"client_ip", ip,
				"path", r.URL.Path)
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}
