package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/warden/internal/metrics"
)

// Recovery converts a handler panic into a 500 JSON response. The response
// carries the request id so a caller's report can be matched to the log
// entry. With verbose set the entry also holds the stack and sanitized headers.
func Recovery(verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			metrics.IncPanic()

			fields := logrus.Fields{
				"panic":  fmt.Sprint(r),
				"method": c.Request.Method,
				"path":   SanitizePath(c.Request.URL.Path),
			}
			if uid, ok := c.Get(userIDKey); ok {
				fields["user_id"] = uid
			}
			if verbose {
				fields["headers"] = SanitizeHeaders(c.Request.Header)
				fields["stack"] = string(debug.Stack())
			}
			GetRequestLogger(c).WithFields(fields).Error("Recovered from panic")

			body := gin.H{"error": "internal server error"}
			if rid := c.GetString(RequestIDKey); rid != "" {
				body["request_id"] = rid
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
