package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/service"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
)

// ResponseCache is satisfied by *service.CacheService.
type ResponseCache interface {
	Get(key string) (interface{}, bool)
	SetIfAbsent(key string, value interface{}, ttl time.Duration) bool
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
}

type inFlight struct{}

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a caller retries a request with
// the same Idempotency-Key. A retry that arrives while the first attempt is still
// running gets 409. Server errors are not stored so the caller can retry them.
// Must run after AuthMiddleware.
func Idempotency(cache ResponseCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			response.BadRequest(c, "Idempotency-Key is too long")
			return
		}

		userID, _ := CurrentUserID(c)
		cacheKey := service.IdempotencyCacheKey(userID.String(), c.Request.Method+" "+c.FullPath(), key)

		if !cache.SetIfAbsent(cacheKey, inFlight{}, ttl) {
			v, _ := cache.Get(cacheKey)
			if stored, ok := v.(cachedResponse); ok {
				c.Header(ReplayedHeader, "true")
				c.Data(stored.status, stored.contentType, stored.body)
				c.Abort()
				return
			}
			response.Conflict(c, "a request with this Idempotency-Key is already in progress")
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			cache.Delete(cacheKey)
			return
		}
		cache.Set(cacheKey, cachedResponse{
			status:      status,
			contentType: w.Header().Get("Content-Type"),
			body:        w.body.Bytes(),
		}, ttl)
	}
}
