package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iappwebdev/mahl-zeit-planer/internal/middleware"
	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/service"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidWeekStart),
		errors.Is(err, model.ErrInvalidDay),
		errors.Is(err, model.ErrInvalidCategory),
		errors.Is(err, service.ErrQuotaOutOfRange),
		errors.Is(err, service.ErrQuotaTotalExceeded):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDishNotFound),
		errors.Is(err, service.ErrPlanNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the mapped status. Internal errors are attached
// to the context for the request logger and hidden from the client.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, middleware.ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, middleware.ErrorResponse{Error: err.Error()})
}
