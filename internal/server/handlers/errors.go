package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnknownCategory),
		errors.Is(err, models.ErrUnknownForm),
		errors.Is(err, models.ErrInvalidField),
		errors.Is(err, models.ErrNotIndexed),
		errors.Is(err, models.ErrNotSynced):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrTransportFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func categoryParam(c *gin.Context) (models.Category, error) {
	return models.ParseCategory(c.Param("category"))
}
