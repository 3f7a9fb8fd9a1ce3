package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/models"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
)

// CostRecordHandler handles cost records: the step-by-step workflow, direct
// corrections after it, receipts and the cost report
type CostRecordHandler struct {
	costRepo       *database.CostRecordRepository
	engine         *services.CostAggregationService
	workflow       *services.CostWorkflowService
	reports        *services.CostReportService
	maxUploadBytes int64
	logger         *logrus.Logger
}

// NewCostRecordHandler creates a new CostRecordHandler. maxUploadMB limits
// receipt uploads.
func NewCostRecordHandler(
	costRepo *database.CostRecordRepository,
	engine *services.CostAggregationService,
	workflow *services.CostWorkflowService,
	reports *services.CostReportService,
	maxUploadMB int,
	logger *logrus.Logger,
) *CostRecordHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 5
	}
	return &CostRecordHandler{
		costRepo:       costRepo,
		engine:         engine,
		workflow:       workflow,
		reports:        reports,
		maxUploadBytes: int64(maxUploadMB) << 20,
		logger:         logger,
	}
}

// ListCostRecords lists cost records
// GET /api/v1/cost-records?step=&bus_id=&trip_id=&limit=&offset=
func (h *CostRecordHandler) ListCostRecords(c *gin.Context) {
	filter := models.CostRecordFilter{
		Step:   models.CostStep(c.Query("step")),
		BusID:  c.Query("bus_id"),
		TripID: c.Query("trip_id"),
	}
	if filter.Step != "" && filter.Step.Order() == 0 {
		respondError(c, h.logger, models.NewValidationError("step", "unknown workflow step"), "Failed to fetch cost records")
		return
	}
	var err error
	if filter.Limit, err = pageLimit(c); err != nil {
		respondError(c, h.logger, err, "Failed to fetch cost records")
		return
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		respondError(c, h.logger, err, "Failed to fetch cost records")
		return
	}

	records, err := h.costRepo.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch cost records")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cost_records": records,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

// GetCostRecord retrieves a cost record
// GET /api/v1/cost-records/:id
func (h *CostRecordHandler) GetCostRecord(c *gin.Context) {
	record, err := h.engine.GetCostRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch cost record")
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteCostRecord deletes a cost record with its fuel stops, tolls and the
// maintenance used only by it
// DELETE /api/v1/cost-records/:id
func (h *CostRecordHandler) DeleteCostRecord(c *gin.Context) {
	if err := h.engine.DeleteCostRecord(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete cost record")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cost record deleted successfully"})
}

// Recalculate recomputes every derived sum of a cost record from its children
// POST /api/v1/cost-records/:id/recalculate
func (h *CostRecordHandler) Recalculate(c *gin.Context) {
	record, err := h.engine.Recalculate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to recalculate cost record")
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetCostReport returns the fully resolved cost report
// GET /api/v1/cost-records/:id/report
func (h *CostRecordHandler) GetCostReport(c *gin.Context) {
	report, err := h.reports.GetCostReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to build cost report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// DownloadCostReport returns the cost report as a PDF attachment
// GET /api/v1/cost-records/:id/report.pdf
func (h *CostRecordHandler) DownloadCostReport(c *gin.Context) {
	out, filename, err := h.reports.RenderCostReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to render cost report")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", out)
}

// --- Workflow ---

// SetInitialOdometer records the odometer reading at departure
// PUT /api/v1/cost-records/:id/workflow/initial-odometer
func (h *CostRecordHandler) SetInitialOdometer(c *gin.Context) {
	var req models.OdometerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, err := h.workflow.SetInitialOdometer(c.Request.Context(), c.Param("id"), *req.Value)
	if err != nil {
		respondError(c, h.logger, err, "Failed to set initial odometer")
		return
	}
	c.JSON(http.StatusOK, record)
}

// RecordMaintenance registers a maintenance event for the trip's bus and
// links it to the cost record
// POST /api/v1/cost-records/:id/workflow/maintenance
func (h *CostRecordHandler) RecordMaintenance(c *gin.Context) {
	var req models.MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, item, err := h.workflow.RecordMaintenance(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to record maintenance")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"cost_record": record,
		"maintenance": item,
	})
}

// SkipMaintenance advances past the maintenance step
// POST /api/v1/cost-records/:id/workflow/maintenance/skip
func (h *CostRecordHandler) SkipMaintenance(c *gin.Context) {
	h.skip(c, h.workflow.SkipMaintenance)
}

// RecordTolls registers the tolls paid during the trip
// POST /api/v1/cost-records/:id/workflow/tolls
func (h *CostRecordHandler) RecordTolls(c *gin.Context) {
	var req models.TollsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, tolls, err := h.workflow.RecordTolls(c.Request.Context(), c.Param("id"), req.Tolls)
	if err != nil {
		respondError(c, h.logger, err, "Failed to record tolls")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"cost_record": record,
		"tolls":       tolls,
	})
}

// SkipTolls advances past the tolls step
// POST /api/v1/cost-records/:id/workflow/tolls/skip
func (h *CostRecordHandler) SkipTolls(c *gin.Context) {
	h.skip(c, h.workflow.SkipTolls)
}

// RecordFuelStops registers all the fuel stops of the trip at once
// POST /api/v1/cost-records/:id/workflow/fuel-stops
func (h *CostRecordHandler) RecordFuelStops(c *gin.Context) {
	var req models.FuelStopsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, stops, err := h.workflow.RecordFuelStops(c.Request.Context(), c.Param("id"), req.Stops)
	if err != nil {
		respondError(c, h.logger, err, "Failed to record fuel stops")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"cost_record": record,
		"fuel_stops":  stops,
	})
}

// SkipFuelStops advances past the fuel stops step
// POST /api/v1/cost-records/:id/workflow/fuel-stops/skip
func (h *CostRecordHandler) SkipFuelStops(c *gin.Context) {
	h.skip(c, h.workflow.SkipFuelStops)
}

// SetFinalOdometer closes the workflow
// PUT /api/v1/cost-records/:id/workflow/final-odometer
func (h *CostRecordHandler) SetFinalOdometer(c *gin.Context) {
	var req models.OdometerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, err := h.workflow.SetFinalOdometer(c.Request.Context(), c.Param("id"), *req.Value)
	if err != nil {
		respondError(c, h.logger, err, "Failed to set final odometer")
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *CostRecordHandler) skip(c *gin.Context, fn func(ctx context.Context, id string) (*models.CostRecord, error)) {
	record, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to skip workflow step")
		return
	}
	c.JSON(http.StatusOK, record)
}

// --- Direct corrections ---

// ListFuelStops lists the fuel stops of a cost record by sequence number
// GET /api/v1/cost-records/:id/fuel-stops
func (h *CostRecordHandler) ListFuelStops(c *gin.Context) {
	stops, err := h.engine.ListFuelStops(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch fuel stops")
		return
	}
	c.JSON(http.StatusOK, stops)
}

// AddFuelStop adds one fuel stop to a cost record
// POST /api/v1/cost-records/:id/fuel-stops
func (h *CostRecordHandler) AddFuelStop(c *gin.Context) {
	var req models.FuelStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	stop, err := h.engine.AddFuelStop(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to add fuel stop")
		return
	}
	c.JSON(http.StatusCreated, stop)
}

// UpdateFuelStop edits a fuel stop and returns it with the updated cost record
// PUT /api/v1/fuel-stops/:id
func (h *CostRecordHandler) UpdateFuelStop(c *gin.Context) {
	var req models.FuelStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	stop, err := h.engine.UpdateFuelStop(ctx, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update fuel stop")
		return
	}
	record, err := h.engine.GetCostRecord(ctx, stop.CostRecordID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update fuel stop")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fuel_stop":   stop,
		"cost_record": record,
	})
}

// RemoveFuelStop deletes a fuel stop and returns the updated cost record
// DELETE /api/v1/fuel-stops/:id
func (h *CostRecordHandler) RemoveFuelStop(c *gin.Context) {
	record, err := h.engine.RemoveFuelStop(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to remove fuel stop")
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListTolls lists the tolls of a cost record
// GET /api/v1/cost-records/:id/tolls
func (h *CostRecordHandler) ListTolls(c *gin.Context) {
	tolls, err := h.engine.ListTolls(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch tolls")
		return
	}
	c.JSON(http.StatusOK, tolls)
}

// AddToll adds one toll to a cost record
// POST /api/v1/cost-records/:id/tolls
func (h *CostRecordHandler) AddToll(c *gin.Context) {
	var req models.TollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	toll, err := h.engine.AddToll(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to add toll")
		return
	}
	c.JSON(http.StatusCreated, toll)
}

// RemoveToll deletes a toll
// DELETE /api/v1/tolls/:id
func (h *CostRecordHandler) RemoveToll(c *gin.Context) {
	if err := h.engine.RemoveToll(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to remove toll")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Toll removed successfully"})
}

// SetMaintenance replaces the maintenance linked to a cost record
// PUT /api/v1/cost-records/:id/maintenance
func (h *CostRecordHandler) SetMaintenance(c *gin.Context) {
	var req models.SetMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, err := h.engine.SetMaintenance(c.Request.Context(), c.Param("id"), req.MaintenanceIDs)
	if err != nil {
		respondError(c, h.logger, err, "Failed to set maintenance")
		return
	}
	c.JSON(http.StatusOK, record)
}

// SetOtherCosts sets the manually entered other costs
// PUT /api/v1/cost-records/:id/other-costs
func (h *CostRecordHandler) SetOtherCosts(c *gin.Context) {
	var req models.OtherCostsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, err := h.engine.SetOtherCosts(c.Request.Context(), c.Param("id"), *req.Amount, strings.TrimSpace(req.Justification))
	if err != nil {
		respondError(c, h.logger, err, "Failed to set other costs")
		return
	}
	c.JSON(http.StatusOK, record)
}

// --- Receipts ---

// UploadFuelStopReceipt attaches a receipt file to a fuel stop
// POST /api/v1/fuel-stops/:id/receipt (multipart, field "file")
func (h *CostRecordHandler) UploadFuelStopReceipt(c *gin.Context) {
	h.receipt(c, func(ctx context.Context, filename, contentType string, body io.Reader) (interface{}, error) {
		return h.engine.AttachFuelStopReceipt(ctx, c.Param("id"), filename, contentType, body)
	})
}

// UploadTollReceipt attaches a receipt file to a toll
// POST /api/v1/tolls/:id/receipt (multipart, field "file")
func (h *CostRecordHandler) UploadTollReceipt(c *gin.Context) {
	h.receipt(c, func(ctx context.Context, filename, contentType string, body io.Reader) (interface{}, error) {
		return h.engine.AttachTollReceipt(ctx, c.Param("id"), filename, contentType, body)
	})
}

type attachFunc func(ctx context.Context, filename, contentType string, body io.Reader) (interface{}, error)

func (h *CostRecordHandler) receipt(c *gin.Context, attach attachFunc) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("Receipt exceeds the %d MB limit", h.maxUploadBytes>>20),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required (multipart field \"file\")"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err, "Failed to read receipt")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}

	updated, err := attach(c.Request.Context(), header.Filename, strings.TrimSpace(contentType), file)
	if err != nil {
		respondError(c, h.logger, err, "Failed to upload receipt")
		return
	}
	c.JSON(http.StatusOK, updated)
}
