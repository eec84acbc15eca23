package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/response"
)

// RequireRole ensures that the authenticated account has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		if r, _ := role.(string); !allowed[r] {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleAdmin)
}

// PartnerOnly admits partners and admins.
func PartnerOnly() gin.HandlerFunc {
	return RequireRole(jwt.RolePartner, jwt.RoleAdmin)
}
