package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/services"
)

// ThrottleSubmissions limits how often one client address may submit. Admins
// are exempt. If the limiter itself fails the request is let through.
func ThrottleSubmissions(limiter services.SubmissionLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || CallerFrom(c).Privileged {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			GetRequestLogger(c).WithError(err).Warn("Submission limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			metrics.IncThrottled()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions, try again later"})
			return
		}
		c.Next()
	}
}
