package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/security"
	"github.com/compass-coaching/compass-go/pkg/config"
)

const authUserKey = "authUser"

// AuthMiddleware validates the bearer token and attaches the authenticated
// user to the request context. Requests without a valid token are rejected.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := security.ValidateJWT(token, config.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		authenticated := security.GetUserFromClaims(claims)
		if authenticated == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(authUserKey, authenticated)
		c.Next()
	}
}

// GetAuthUser retrieves the authenticated user placed by AuthMiddleware.
func GetAuthUser(c *gin.Context) (*user.AuthenticatedUser, bool) {
	value, exists := c.Get(authUserKey)
	if !exists {
		return nil, false
	}
	authenticated, ok := value.(*user.AuthenticatedUser)
	return authenticated, ok
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Websocket clients cannot set headers from the browser, so the
	// broadcast endpoint passes the token as a query parameter.
	return c.Query("token")
}
