package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staybook/internal/pkg/apperr"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// StatusOf maps an error category onto an HTTP status. Untyped errors are
// internal errors.
func StatusOf(err error) int {
	if !apperr.IsTyped(err) {
		return http.StatusInternalServerError
	}
	switch apperr.CategoryOf(err) {
	case apperr.CategoryValidation:
		return http.StatusBadRequest
	case apperr.CategoryNotFound:
		return http.StatusNotFound
	case apperr.CategoryConflict:
		return http.StatusConflict
	case apperr.CategoryUnauthorized:
		return http.StatusUnauthorized
	case apperr.CategoryForbidden:
		return http.StatusForbidden
	}
	return http.StatusUnprocessableEntity
}

// FromError writes err in the error envelope. Joined validation errors are
// listed under details; untyped errors are recorded on the context for the
// error logger and hidden from the client.
func FromError(c *gin.Context, err error) {
	status := StatusOf(err)
	list := apperr.List(err)
	if len(list) == 0 {
		_ = c.Error(err)
		Error(c, status, "INTERNAL_ERROR", "internal server error")
		return
	}
	first := list[0]
	if len(list) == 1 {
		Error(c, status, first.Code, first.Message)
		return
	}
	ErrorWithDetails(c, status, first.Code, first.Message, list)
}
