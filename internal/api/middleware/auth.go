package middleware

import (
	"ctchen222/car-dealership/internal/api/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authenticator reports whether the request belongs to a logged-in user.
type Authenticator interface {
	IsAuthenticated(c *gin.Context) bool
}

// RequireAuthJSON rejects anonymous API requests with 401.
func RequireAuthJSON(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAuthenticated(c) {
			response.AbortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

// RequireAuthPage sends anonymous visitors to the login page.
func RequireAuthPage(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAuthenticated(c) {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}
