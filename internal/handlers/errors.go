package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
)

// respondError writes the HTTP response for an error returned by a service or
// repository. Unexpected errors are logged and hidden behind fallback.
func respondError(c *gin.Context, logger *logrus.Logger, err error, fallback string) {
	var (
		validationErr *models.ValidationError
		duplicateErr  *models.DuplicateCostRecordError
		workflowErr   *models.WorkflowError
	)

	switch {
	case errors.As(err, &validationErr):
		body := gin.H{"error": validationErr.Error(), "code": "VALIDATION_ERROR"}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "DUPLICATE_COST_RECORD", "trip_id": duplicateErr.TripID})
	case errors.As(err, &workflowErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"code":         "WORKFLOW_STEP_REJECTED",
			"step":         workflowErr.Step,
			"current_step": workflowErr.Current,
		})
	case errors.Is(err, services.ErrStorageDisabled), errors.Is(err, services.ErrEmailDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "FEATURE_DISABLED"})
	default:
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// bindError answers a request whose body or query failed to bind
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}

// queryInt reads a non-negative integer query parameter
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
