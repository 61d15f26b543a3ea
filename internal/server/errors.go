package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lernpfad/backend/internal/domain"
)

// respondError maps the service error taxonomy onto HTTP statuses.
// Unclassified errors stay opaque to the client.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var (
		provErr *domain.ProviderError
		invErr  *domain.InvalidGenerationError
		valErr  *domain.ValidationError
	)

	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "not enough progress data to personalize",
			"code":  "insufficient_data",
		})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": valErr.Msg,
			"code":  "validation_error",
		})
	case errors.As(err, &provErr):
		log.Error("generation provider failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "the generation service is currently unavailable",
			"code":  "provider_error",
		})
	case errors.As(err, &invErr):
		// The raw output goes to diagnostics, never to the client.
		log.Error("unusable generated output", zap.Error(err), zap.String("raw", invErr.Raw))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "the generation service returned an unusable result",
			"code":  "invalid_generation",
		})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  "internal",
		})
	}
}
