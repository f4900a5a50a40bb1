package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const driverIDKey = "driverID"

// Auth verifies the bearer token issued by the identity service and attaches
// the driver id claim to the request context. Token issuance and session
// management live outside this service; only verification happens here.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set(driverIDKey, sub)
		}

		c.Next()
	}
}

// DriverID returns the authenticated driver id, empty when unauthenticated.
func DriverID(c *gin.Context) string {
	return c.GetString(driverIDKey)
}
