package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// RateLimit enforces a per-client-IP request budget in requests per minute.
// Entries idle past ten minutes are dropped on the next refill pass.
func RateLimit(rpm int) gin.HandlerFunc {
	if rpm <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var mu sync.Mutex
	buckets := make(map[string]*tokenBucket)
	ratePerSec := float64(rpm) / 60.0
	burst := float64(rpm)

	return func(c *gin.Context) {
		key := c.ClientIP()
		now := time.Now()

		mu.Lock()
		tb, ok := buckets[key]
		if !ok {
			tb = &tokenBucket{tokens: burst, last: now}
			buckets[key] = tb
		}
		elapsed := now.Sub(tb.last).Seconds()
		if elapsed > 0 {
			tb.tokens += elapsed * ratePerSec
			if tb.tokens > burst {
				tb.tokens = burst
			}
			tb.last = now
		}
		allowed := tb.tokens >= 1
		if allowed {
			tb.tokens--
		}
		if len(buckets) > 10000 {
			for k, b := range buckets {
				if now.Sub(b.last) > 10*time.Minute {
					delete(buckets, k)
				}
			}
		}
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}
