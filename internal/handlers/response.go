package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fincoach-backend/internal/faults"
)

// RespondError maps the fault taxonomy onto HTTP status codes:
// input problems 422, missing resources 404/409, model outages 502/503,
// everything else 500. Validation failures keep their per-field detail.
func RespondError(c *gin.Context, err error) {
	var (
		intakeErr     *faults.IntakeError
		validationErr *faults.ValidationError
		scoringErr    *faults.ScoringError
		generationErr *faults.GenerationError
	)

	switch {
	case errors.As(err, &intakeErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": intakeErr.Fields,
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": []*faults.ValidationError{validationErr},
		})
	case errors.Is(err, faults.ErrNoSnapshot):
		c.JSON(http.StatusConflict, gin.H{"error": "no spending data submitted yet"})
	case errors.Is(err, faults.ErrSnapshotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
	case errors.As(err, &scoringErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "risk scoring unavailable"})
	case errors.As(err, &generationErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "coach unavailable, please try again shortly"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func RespondOK(c *gin.Context, payload gin.H) {
	c.JSON(http.StatusOK, payload)
}
