package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the upstream gateway after authentication.
const (
	HeaderUserID  = "X-User-ID"
	HeaderAdminID = "X-Admin-ID"

	userIDKey  = "userID"
	adminIDKey = "adminID"
)

// AdminChecker reports whether an id belongs to an administrator.
// services.AdminSet satisfies it.
type AdminChecker interface {
	IsAdmin(userID string) bool
}

// Identity copies X-User-ID into the context so later middleware (rate
// limiting, idempotency, logging) and handlers agree on the caller.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderUserID)); id != "" {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}

// UserID returns the caller id from the context or the X-User-ID header,
// or "" when the request is anonymous.
func UserID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if s := c.GetString(userIDKey); s != "" {
		return s
	}
	if c.Request != nil {
		return strings.TrimSpace(c.GetHeader(HeaderUserID))
	}
	return ""
}

// RequireAdmin rejects requests whose X-Admin-ID is missing (401) or not in
// the allowlist (403). On success the id is available through AdminID.
func RequireAdmin(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderAdminID))
		if id == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "admin identity required")
			return
		}
		if admins == nil || !admins.IsAdmin(id) {
			abortJSON(c, http.StatusForbidden, "forbidden", "admin privileges required")
			return
		}
		c.Set(adminIDKey, id)
		c.Next()
	}
}

// AdminID returns the id accepted by RequireAdmin.
func AdminID(c *gin.Context) string {
	return c.GetString(adminIDKey)
}

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": GetRequestID(c),
		"code":       code,
		"message":    msg,
	})
}
