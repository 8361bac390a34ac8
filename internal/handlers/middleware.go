package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const contextUserKey = "user_id"

// devUserID stands in for a verified user when no JWT secret is configured.
const devUserID = "developer-user-123"

// AuthRequired verifies the Supabase-issued HS256 bearer token and stores
// the subject as the request's user id. Without a configured secret every
// request runs as a fixed dev user, with a warning.
func AuthRequired(secret string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			logger.Warn("SUPABASE_JWT_SECRET not configured, using dev user")
			c.Set(contextUserKey, devUserID)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == "" || tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithAudience("authenticated"))
		if err != nil || !token.Valid {
			logger.WithError(err).Warn("JWT validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication credentials"})
			return
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(contextUserKey, subject)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(contextUserKey)
}
