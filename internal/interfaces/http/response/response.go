package response

import (
	"github.com/gin-gonic/gin"
	domainerrors "diamond-pay.backend/internal/domain/errors"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error sends an error response, mapping domain errors to their HTTP
// status. Internal details never leak: non-AppError messages are
// replaced with a generic one.
func Error(c *gin.Context, err error) {
	status := domainerrors.StatusOf(err)

	message := "internal server error"
	if appErr, ok := err.(*domainerrors.AppError); ok {
		message = appErr.Message
	} else if status < 500 {
		message = err.Error()
	}

	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// ErrorWithStatus sends an error response with an explicit status
func ErrorWithStatus(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}
