package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/services"
)

// Context keys set by AuthMiddleware.
const (
	ContextAnalystID    = "analyst_id"
	ContextAnalystEmail = "analyst_email"
	ContextAnalystRole  = "analyst_role"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := tokens.ParseToken(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		c.Set(ContextAnalystID, claims.AnalystID)
		c.Set(ContextAnalystEmail, claims.Subject)
		c.Set(ContextAnalystRole, claims.Role)
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles. It must
// run after AuthMiddleware.
func RequireRoles(roles ...models.AnalystRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextAnalystRole)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

// AnalystID returns the authenticated analyst id, or 0.
func AnalystID(c *gin.Context) uint {
	if v, ok := c.Get(ContextAnalystID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// AnalystEmail returns the authenticated analyst email, or "".
func AnalystEmail(c *gin.Context) string {
	return c.GetString(ContextAnalystEmail)
}
