package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/services"
	"github.com/saleflow/backend/internal/session"
)

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidPassword),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the common envelope. Unexpected errors are
// logged and hidden from the client.
func respondError(c *gin.Context, component string, err error) {
	status := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err, component).WithField("path", c.Request.URL.Path).Error("Request failed")
		message = "Lỗi hệ thống, vui lòng thử lại."
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": err.Error(),
	})
}
