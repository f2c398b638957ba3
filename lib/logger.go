package userdesk

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"userdesk/shared/logger"
)

const (
	requestIDHeader  = "X-Request-ID"
	requestLoggerKey = "logger"
)

// LogMiddleware tags each request with an ID, attaches a logger carrying it
// and logs the outcome.
func LogMiddleware(c *gin.Context) {
	start := time.Now()

	requestID := c.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.NewString()
	}
	c.Header(requestIDHeader, requestID)

	log := logger.Log.With(
		logger.String("request_id", requestID),
		logger.String("method", c.Request.Method),
		logger.String("path", c.Request.URL.Path),
	)
	c.Set(requestLoggerKey, log)

	c.Next()

	fields := []logger.Field{
		logger.Int("status", c.Writer.Status()),
		logger.String("ip", c.ClientIP()),
		logger.Duration("latency", time.Since(start)),
	}
	if len(c.Errors) > 0 {
		fields = append(fields, logger.String("errors", c.Errors.String()))
	}

	switch {
	case c.Writer.Status() >= 500:
		log.Error("HTTP Response", fields...)
	default:
		log.Info("HTTP Response", fields...)
	}
}

// requestLogger returns the logger attached by LogMiddleware, or the global
// logger outside a logged request.
func requestLogger(c *gin.Context) logger.Logger {
	if l, ok := c.Get(requestLoggerKey); ok {
		if log, ok := l.(logger.Logger); ok {
			return log
		}
	}
	return logger.Log
}
