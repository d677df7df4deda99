// Package middleware contains the Gin middleware shared by the HTTP layer.
//
// This file holds the correlation and failure plumbing:
//
//   - RequestID reuses or mints the X-Request-ID of every request.
//   - Recovery turns a handler panic into the standard JSON 500 envelope.
//   - LoggerFrom returns the request-scoped zerolog.Logger that
//     RedactingLogger attaches, or the global logger when none is present.
//
// Recommended order: RequestID, RedactingLogger, Recovery. That way a panic is
// logged with the request id and the access log still records the 500.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxRequestIDLength bounds a client-supplied id before it reaches logs.
	maxRequestIDLength = 128
)

// RequestID propagates the caller's X-Request-ID or generates a UUID. The id
// is echoed on the response and stored in the context under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the id stored by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Recovery converts panics into a 500 with the error envelope
// {request_id, code: internal_error, message}. If the handler already wrote
// headers only the status is recorded.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := GetRequestID(c)
			LoggerFrom(c).Error().
				Str("panic", fmt.Sprint(rec)).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger. It never returns nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if c != nil {
		if v, ok := c.Get(loggerKey); ok {
			if lg, ok := v.(*zerolog.Logger); ok && lg != nil {
				return lg
			}
		}
	}
	l := log.Logger
	return &l
}
