// Package middleware provides the gin middleware of the shopfront API.
//
// Package middleware 提供shopfront API的gin中间件。
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yourusername/shopfront/pkg/cache"
	"github.com/yourusername/shopfront/pkg/logx"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
)

// RequestID returns a middleware that propagates the caller's X-Request-ID,
// or assigns a new one, and echoes it in the response.
//
// RequestID 返回一个中间件，透传调用方的X-Request-ID或生成新的ID，并在响应中回显。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger returns a middleware that logs request information
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logx.Error()
		case status >= 400:
			event = logx.Warn()
		default:
			event = logx.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("request_id", GetRequestID(c)).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// StatsFunc reports cache statistics; a nil result means no cache.
type StatsFunc func(ctx context.Context) (*cache.Stats, error)

// CacheMetrics returns a middleware that adds cache metrics to the response
// headers. Headers must be set before the body is written, so the stats are
// the ones seen when the request arrived.
//
// CacheMetrics 返回一个将缓存指标添加到响应头的中间件。
func CacheMetrics(stats StatsFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := stats(c.Request.Context())
		if err == nil && s != nil {
			c.Header("X-Cache-Hits", fmt.Sprintf("%d", s.Hits))
			c.Header("X-Cache-Misses", fmt.Sprintf("%d", s.Misses))
			c.Header("X-Cache-Hit-Ratio", fmt.Sprintf("%.2f", s.HitRatio()))
			c.Header("X-Cache-Entries", fmt.Sprintf("%d", s.EntryCount))
		}
		c.Next()
	}
}
