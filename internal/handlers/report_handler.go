package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
)

// ReportHandler handles period reports
type ReportHandler struct {
	reports *services.CostReportService
	logger  *logrus.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *services.CostReportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// GetCostSummary totals costs per bus for trips departing in a date range.
// Both dates default to the current month.
// GET /api/v1/reports/costs/summary?from=YYYY-MM-DD&to=YYYY-MM-DD&bus_id=
func (h *ReportHandler) GetCostSummary(c *gin.Context) {
	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := c.DefaultQuery("from", firstOfMonth.Format(models.DateLayout))
	to := c.DefaultQuery("to", firstOfMonth.AddDate(0, 1, -1).Format(models.DateLayout))

	summary, err := h.reports.GetCostSummary(c.Request.Context(), from, to, c.Query("bus_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to build cost summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
