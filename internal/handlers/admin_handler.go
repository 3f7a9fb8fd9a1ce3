package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/middleware"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
)

// AdminHandler handles administrative data repairs
type AdminHandler struct {
	linking *services.TripLinkingService
	status  *services.TripStatusService
	logger  *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(linking *services.TripLinkingService, status *services.TripStatusService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		linking: linking,
		status:  status,
		logger:  logger,
	}
}

// ReconcileTripLinks repairs round trip links; dry_run=true only reports
// POST /api/v1/admin/trips/reconcile-links?dry_run=true
func (h *AdminHandler) ReconcileTripLinks(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"

	report, err := h.linking.ReconcileLinks(c.Request.Context(), dryRun)
	if err != nil {
		respondError(c, h.logger, err, "Failed to reconcile trip links")
		return
	}

	operator, _ := middleware.GetOperatorContext(c)
	h.logger.WithFields(logrus.Fields{
		"operator": operator.Subject,
		"dry_run":  dryRun,
		"examined": report.Examined,
		"updated":  report.Updated,
	}).Info("Trip link reconciliation requested")
	c.JSON(http.StatusOK, report)
}

// SyncTripStatus marks trips whose cost record is completed as completed
// POST /api/v1/admin/trips/sync-status
func (h *AdminHandler) SyncTripStatus(c *gin.Context) {
	ids, err := h.status.CompleteCostedTrips(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to sync trip status")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"updated":  len(ids),
		"trip_ids": ids,
	})
}
