package response

import (
	"ctchen222/car-dealership/internal/api/models"

	"github.com/gin-gonic/gin"
)

// ErrorResponse writes {"error": message} with the given status.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, models.ErrorBody{Error: message})
}

// AbortWithError is ErrorResponse for middleware: later handlers are skipped.
func AbortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, models.ErrorBody{Error: message})
}
