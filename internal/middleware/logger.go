package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger returns a gin.HandlerFunc (middleware) that logs requests using zerolog.
// Server errors are logged at error level, everything else at debug.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		level := zerolog.DebugLevel
		if statusCode >= 500 {
			level = zerolog.ErrorLevel
		}

		var errorMessage string
		if len(c.Errors) > 0 {
			errorMessage = c.Errors.String()
		}

		log.WithLevel(level).
			Str("path", path).
			Str("raw", raw).
			Str("route", c.FullPath()).
			Int("status", statusCode).
			Str("method", c.Request.Method).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Int("size", c.Writer.Size()).
			Str("error", errorMessage).
			Msg("incoming request")
	}
}
