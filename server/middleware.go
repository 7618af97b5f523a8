package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vijay-svsk/call-summarizer/apperr"
)

const requestIDHeader = "X-Request-Id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"path":       c.Request.URL.Path,
					"request_id": c.GetString("request_id"),
					"stack":      string(debug.Stack()),
				}).Errorf("panic recovered: %v", r)
				writeError(c, apperr.New(apperr.KindInternal, "internal error"), 0)
			}
		}()
		c.Next()
	}
}

// requestLogger logs each request at a level chosen by its status.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"duration":   time.Since(start),
			"request_id": c.GetString("request_id"),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		case c.Request.URL.Path == pathHealth:
			entry.Debug("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// writeError renders e as the error body. status 0 uses the kind's status.
func writeError(c *gin.Context, e *apperr.Error, status int) {
	if status == 0 {
		status = e.Kind.HTTPStatus()
	}
	c.AbortWithStatusJSON(status, e.ToResponse())
}
