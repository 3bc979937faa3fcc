package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-system/internal/auth"
	"storefront-system/internal/utils"
)

const actorKey = "actor"

// JWTAuth requires a bearer token and puts the caller on the request context.
func JWTAuth(signer *utils.TokenSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authorization header required",
			})
			return
		}

		claims, err := signer.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid or expired token",
			})
			return
		}

		actor := auth.Actor{UserID: claims.UserId, Role: claims.Role}
		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auth.ActorFrom(c.Request.Context())
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Admin access required",
			})
			return
		}
		c.Next()
	}
}
