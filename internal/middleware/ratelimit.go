package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/ratelimit"
)

// RateLimit rejects callers over the policy's budget with 429 before the
// handler runs.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := ratelimit.ClientID(c.Request)
		if !limiter.AllowPolicy(c.Request.Context(), policy, client) {
			log.WithFields(log.Fields{"client": client, "policy": policy.Name}).Info("rate limit exceeded")
			c.Header("Retry-After", retryAfter(policy))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down"})
			return
		}
		c.Next()
	}
}

func retryAfter(p ratelimit.Policy) string {
	secs := int(p.Window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
