package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
)

// RateLimitMiddleware limits requests per client IP. Each call gets its own
// bucket, so auth and webhook routes can be limited independently.
func RateLimitMiddleware(name string, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "limiter:" + name,
		CleanUpInterval: period,
	})
	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := CurrentUserID(c); ok {
			key = userID.String()
		}

		lctx, err := instance.Get(c, key)
		if err != nil {
			// Fail open.
			logger.FromContext(c.Request.Context()).WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			response.TooManyRequests(c, "too many requests, try again later")
			return
		}
		c.Next()
	}
}
