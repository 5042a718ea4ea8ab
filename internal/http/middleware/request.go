package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const RequestIDHeader = "X-Request-ID"

// RequestID reuses a sane incoming X-Request-ID or mints one, and threads it
// through the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if userID, ok := CurrentUserID(c); ok {
			entry = entry.WithField("user_id", userID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("panic recovered")
				if !c.Writer.Written() {
					response.Error(c, apperror.New(apperror.ErrCodeInternal, "internal server error"))
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// HTTPRecorder is satisfied by *metrics.Metrics.
type HTTPRecorder interface {
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

func Metrics(rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rec.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
