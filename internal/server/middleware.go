package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cardwatch/internal/observability/obscontext"
)

// setExternalID stamps the caller identity on both the gin context (for the
// request log line) and the request context (for downstream service logs and
// span attributes).
func setExternalID(c *gin.Context, externalID string) {
	if externalID == "" {
		return
	}
	c.Set("external_id", externalID)
	c.Request = c.Request.WithContext(obscontext.WithExternalID(c.Request.Context(), externalID))
}

// rateLimiter is an in-memory fixed-window counter keyed by caller.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count       int
	windowStart time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*rateBucket),
	}
}

func (l *rateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.Sub(bucket.windowStart) >= l.window {
		l.prune(now)
		l.buckets[key] = &rateBucket{count: 1, windowStart: now}
		return true
	}

	if bucket.count >= l.limit {
		return false
	}
	bucket.count++
	return true
}

// prune drops expired buckets; called with the lock held.
func (l *rateLimiter) prune(now time.Time) {
	for key, bucket := range l.buckets {
		if now.Sub(bucket.windowStart) >= l.window {
			delete(l.buckets, key)
		}
	}
}

// ClientRateLimit bounds request rates per client IP.
func (s *Server) ClientRateLimit(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP(), time.Now()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
