package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
)

const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AccessTokenParser is implemented by service.TokenManager.
type AccessTokenParser interface {
	ParseAccess(token string) (uuid.UUID, valueobject.Role, error)
}

// AuthMiddleware requires a valid bearer access token and stores the caller in the gin context.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			response.Unauthorized(c, "authorization required")
			return
		}

		userID, role, err := tokens.ParseAccess(strings.TrimSpace(raw))
		if err != nil || userID == uuid.Nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...valueobject.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
	}
}

func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func CurrentRole(c *gin.Context) valueobject.Role {
	role, _ := c.Get(ContextRoleKey)
	r, _ := role.(valueobject.Role)
	return r
}
