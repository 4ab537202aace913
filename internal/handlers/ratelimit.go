package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ipBucket struct {
	tokens float64
	last   time.Time
}

// rateLimiter is a per-IP token bucket.
type rateLimiter struct {
	ratePerSecond float64
	burst         float64

	mu      sync.Mutex
	buckets map[string]ipBucket
}

func newRateLimiter(limitPerMinute, burst int) *rateLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 120
	}
	if burst <= 0 {
		burst = 30
	}
	return &rateLimiter{
		ratePerSecond: float64(limitPerMinute) / 60.0,
		burst:         float64(burst),
		buckets:       make(map[string]ipBucket),
	}
}

func (l *rateLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[ip]
	if bucket.last.IsZero() {
		bucket = ipBucket{tokens: l.burst, last: now}
	}

	elapsed := now.Sub(bucket.last).Seconds()
	if elapsed > 0 {
		bucket.tokens += elapsed * l.ratePerSecond
		if bucket.tokens > l.burst {
			bucket.tokens = l.burst
		}
		bucket.last = now
	}

	if bucket.tokens < 1 {
		l.buckets[ip] = bucket
		return false
	}

	bucket.tokens--
	l.buckets[ip] = bucket
	return true
}

// RateLimit enforces per-IP request limits using a token bucket.
func RateLimit(limitPerMinute, burst int, log *logrus.Logger) gin.HandlerFunc {
	return rateLimitWithClock(newRateLimiter(limitPerMinute, burst), log, time.Now)
}

func rateLimitWithClock(l *rateLimiter, log *logrus.Logger, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.allow(ip, now().UTC()) {
			log.WithFields(logrus.Fields{"event": "rate_limit_throttled", "remote_ip": ip}).Warn("request throttled")
			c.Header("Retry-After", "1")
			writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		c.Next()
	}
}
