package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

const (
	userIDKey = "userID"
	roleKey   = "role"
)

// Authenticate identifies the caller from a Bearer token or HTTP Basic
// credentials. Requests without an Authorization header continue as
// anonymous; requests with bad credentials are rejected.
func Authenticate(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		var (
			user *models.User
			err  error
		)
		switch {
		case strings.HasPrefix(header, "Bearer "):
			user, err = authService.AuthenticateToken(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		case strings.HasPrefix(header, "Basic "):
			email, password, ok := c.Request.BasicAuth()
			if !ok {
				err = services.ErrInvalidCredentials
				break
			}
			user, err = authService.AuthenticateBasic(c.Request.Context(), email, password)
		default:
			unauthorized(c, "unsupported authorization scheme")
			return
		}

		if err != nil {
			GetRequestLogger(c).WithError(err).Debug("Authentication failed")
			msg := "invalid credentials"
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				msg = "token has expired"
			case errors.Is(err, services.ErrAccountDisabled):
				msg = "account disabled"
			}
			unauthorized(c, msg)
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(roleKey, user.Role)
		c.Set("logger", GetRequestLogger(c).WithField("user_id", user.ID))
		c.Next()
	}
}

// RequireRole rejects anonymous callers with 401 and callers with another
// role with 403.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(roleKey)
		if !exists {
			unauthorized(c, "authentication required")
			return
		}

		if r, _ := userRole.(string); r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}

// CallerFrom describes the authenticated caller, or an anonymous one.
func CallerFrom(c *gin.Context) services.Caller {
	caller := services.Anonymous()
	if id, ok := c.Get(userIDKey); ok {
		caller.UserID, _ = id.(uint)
	}
	if role, ok := c.Get(roleKey); ok {
		caller.Privileged = role == models.RoleAdmin
	}
	return caller
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="warden"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
