package response

import (
	"ctchen222/car-dealership/internal/api/models"

	"github.com/gin-gonic/gin"
)

// SuccessResponse writes {"message": message} with the given status.
func SuccessResponse(c *gin.Context, code int, message string) {
	c.JSON(code, models.MessageResponse{Message: message})
}

// SuccessResponseContent writes body as-is with the given status.
func SuccessResponseContent(c *gin.Context, code int, body any) {
	c.JSON(code, body)
}
