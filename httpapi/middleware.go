package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonwraymond/regenops/observe"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const ctxRequestID = "request_id"

// requestID adopts the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// skipLogging lists probe paths that would otherwise flood the log.
var skipLogging = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// requestLogger logs one line per request, at a level chosen by status.
func requestLogger(logger observe.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipLogging[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := []observe.Field{
			observe.F("status", c.Writer.Status()),
			observe.F("method", c.Request.Method),
			observe.F("path", path),
			observe.F("route", c.FullPath()),
			observe.F("latency_ms", time.Since(start).Milliseconds()),
			observe.F("ip", c.ClientIP()),
			observe.F("request_id", c.GetString(ctxRequestID)),
		}
		ctx := c.Request.Context()
		for _, e := range c.Errors {
			logger.Error(ctx, "request error", append(fields, observe.F("error", e.Err))...)
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error(ctx, "server error", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn(ctx, "client error", fields...)
		default:
			logger.Info(ctx, "request completed", fields...)
		}
	}
}
