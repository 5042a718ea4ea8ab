package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
)

// UUIDValidator rejects the request unless every named path parameter is a UUID.
// Usage: router.GET("/escrow/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range params {
			raw := c.Param(name)
			if raw == "" {
				response.BadRequest(c, "parameter "+name+" is required")
				return
			}
			if _, err := uuid.Parse(raw); err != nil {
				response.BadRequest(c, "parameter "+name+" must be a valid UUID")
				return
			}
		}
		c.Next()
	}
}
