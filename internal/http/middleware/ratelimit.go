// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the in-memory token-bucket rate limiters of the API.
// The router installs three:
//
//   - "global": every request, keyed by username or client IP
//   - "login":  POST /auth/login, keyed by client IP (password guessing)
//   - "vote":   POST /features/:id/votes, keyed by client IP; a fresh
//     voter-id cookie is free to mint, the client address is not
//
// Limiters are process-local. Replays flagged by IdempotencyValidator skip
// limiting.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	visitorTTL     = 10 * time.Minute
	sweepEveryHits = 5000
)

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected with 429, by limiter.",
	},
	[]string{"limiter"},
)

func init() {
	prometheus.MustRegister(rateLimited)
}

// KeyFunc selects the bucket a request is charged to.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP prefers the authenticated username and falls back to the
// client IP. Keys are prefixed so the two namespaces never collide.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if s := asString(c.Value(ctxKeyUserID)); s != "" {
			return "user:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP always keys by client IP.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a named set of per-key token buckets. Safe for concurrent use.
type RateLimiter struct {
	name  string
	limit rate.Limit
	burst int
	keyFn KeyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	hits     uint64
	ttl      time.Duration
	now      func() time.Time
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to >= 1). name labels its rejections in metrics.
func NewRateLimiter(name string, rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		name:     name,
		limit:    rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      visitorTTL,
		now:      time.Now,
	}
}

// PerMinute builds a limiter allowing n requests per minute with a burst of n.
func PerMinute(name string, n int, keyFn KeyFunc) *RateLimiter {
	return NewRateLimiter(name, float64(n)/60, n, keyFn)
}

// bucket returns the limiter for key, creating it if absent. Every
// sweepEveryHits lookups, buckets idle for ttl are dropped first, so a stale
// bucket is evicted even when it is the one being fetched.
func (rl *RateLimiter) bucket(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.hits++
	if rl.hits >= sweepEveryHits {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.hits = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay of a completed request.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyRateBypass).(bool)
	return b
}

// Handler charges one token per request. When the bucket is empty it answers
// 429 rate_limited with Retry-After set to the whole seconds until the next
// token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		res := rl.bucket(rl.keyFn(c), now).ReserveN(now, 1)
		delay := res.DelayFrom(now)
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		// Not consuming: the request is rejected, not queued.
		res.CancelAt(now)

		// A zero refill rate never frees a token; the delay is InfDuration.
		retry := 1
		if res.OK() && delay != rate.InfDuration {
			retry = int(math.Ceil(delay.Seconds()))
		}
		rateLimited.WithLabelValues(rl.name).Inc()
		LoggerFrom(c).Warn().Str("limiter", rl.name).Int("retry_after", retry).Msg("rate limited")

		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
