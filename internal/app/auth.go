package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"reception-service/internal/config"
)

const businessIDKey = "business_id"

// AuthMiddleware resolves the calling business from a bearer token. JWT
// tokens carry a business_id claim; static tokens identify internal callers
// (the voice agent, the dashboard backend) which name the business in the
// X-Business-ID header.
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		// JWT path
		if cfg.JWTSecret != "" {
			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(cfg.JWTSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				id, _ := claims[businessIDKey].(string)
				if id == "" {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing business id"})
					return
				}
				c.Set(businessIDKey, id)
				c.Next()
				return
			}
		}

		// static tokens
		for _, t := range cfg.StaticTokens {
			if tokenStr == t {
				id := c.GetHeader("X-Business-ID")
				if id == "" {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-Business-ID required with static token"})
					return
				}
				c.Set(businessIDKey, id)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

// BusinessID returns the authenticated business id for a request.
func BusinessID(c *gin.Context) string {
	return c.GetString(businessIDKey)
}
