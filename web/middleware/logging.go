package middleware

import (
	"time"

	"github.com/authgate/authgate/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an ID and logs it when done.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		msg := "%s %s %s -> %d (%s)"
		args := []any{id, c.Request.Method, c.Request.URL.Path, status, time.Since(start)}
		switch {
		case status >= 500:
			logger.Warningf(msg, args...)
		case len(c.Errors) > 0:
			logger.Infof(msg+": %s", append(args, c.Errors.String())...)
		default:
			logger.Debugf(msg, args...)
		}
	}
}
