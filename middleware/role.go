package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lexbook/utils"
)

// RequireSelf only lets the request through when the token subject equals
// the named path parameter. Must run after JWTAuthMiddleware.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == "" || CurrentUserID(c) != c.Param(param) {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{Error: "you may only modify your own resources"})
			return
		}
		c.Next()
	}
}
