package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/sharebox/internal/pkg/errcode"
	"github.com/xxxsen/sharebox/internal/pkg/jwt"
	"github.com/xxxsen/sharebox/internal/pkg/response"
)

const ContextOwnerIDKey = "owner_id"

// JWTAuth resolves the owner identity from a bearer token issued by the
// identity provider.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextOwnerIDKey, claims.OwnerID)
		c.Next()
	}
}
