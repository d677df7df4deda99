package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to its rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP buckets authenticated callers by user id and anonymous ones
// by client IP. The prefixes keep the two namespaces apart.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if id := UserID(c); id != "" {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per key. Idle buckets are
// evicted on a sweep that runs every sweepEvery lookups.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   KeyFunc

	mu         sync.Mutex
	buckets    map[string]*bucket
	idleTTL    time.Duration
	lookups    int
	sweepEvery int
	now        func() time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per key.
// rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if key == nil {
		key = KeyByUserOrIP()
	}
	return &RateLimiter{
		limit:      rate.Limit(rps),
		burst:      burst,
		key:        key,
		buckets:    make(map[string]*bucket),
		idleTTL:    10 * time.Minute,
		sweepEvery: 1000,
		now:        time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= rl.sweepEvery {
		rl.lookups = 0
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Handler enforces the limit. Idempotent replays flagged by
// IdempotencyValidator are let through without spending a token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 || IsRateBypass(c) {
			c.Next()
			return
		}
		lim := rl.limiter(rl.key(c))
		r := lim.Reserve()
		delay := r.Delay()
		if delay == 0 {
			c.Next()
			return
		}
		r.Cancel()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
		abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}

// IsRateBypass reports whether the request was marked as a replay.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}
