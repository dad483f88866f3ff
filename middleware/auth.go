package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lexbook/utils"
)

// SubjectExtractor verifies a bearer token and returns its subject.
type SubjectExtractor interface {
	ExtractSubject(tokenString string) (string, error)
}

// JWTAuthMiddleware verifies the bearer token and stores its subject under
// utils.ContextUserIDKey.
func JWTAuthMiddleware(verifier SubjectExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Error: "missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		subject, err := verifier.ExtractSubject(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(utils.ContextUserIDKey, subject)
		c.Next()
	}
}

// CurrentUserID returns the subject set by JWTAuthMiddleware.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(utils.ContextUserIDKey)
}
