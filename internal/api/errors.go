package api

import (
	"errors"
	"net/http"

	"questmart/internal/service"
	"questmart/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps core errors to HTTP responses. Anything unrecognised is a
// 500 and is logged.
func writeError(c *gin.Context, err error, fields ...zap.Field) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrQuestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrAlreadyStarted),
		errors.Is(err, service.ErrQuestNotStarted),
		errors.Is(err, service.ErrQuestCompleted):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidProgressValue),
		errors.Is(err, service.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidUser),
		errors.Is(err, service.ErrInvalidMetric),
		errors.Is(err, service.ErrInvalidDirection):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.Logger().Error("request failed", append(fields, zap.Error(err))...)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
