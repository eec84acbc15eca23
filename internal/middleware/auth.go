package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/response"
)

const (
	ctxAccountID = "account_id"
	ctxRole      = "role"
)

// JWTAuth verifies the bearer token and stores the account id and role on
// the gin context.
func JWTAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}
		account, _ := claims.Account()

		c.Set(ctxAccountID, account)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// AccountID returns the authenticated account, if any.
func AccountID(c *gin.Context) (ids.AccountID, bool) {
	v, ok := c.Get(ctxAccountID)
	if !ok {
		return ids.AccountID{}, false
	}
	id, ok := v.(ids.AccountID)
	return id, ok && !id.IsZero()
}

// Role returns the authenticated role or "".
func Role(c *gin.Context) string {
	return c.GetString(ctxRole)
}
