package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records request counts and latency.
type HTTPObserver interface {
	HTTPStarted()
	ObserveHTTP(method, route string, status int, dur time.Duration)
}

func Metrics(m HTTPObserver) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPStarted()
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
