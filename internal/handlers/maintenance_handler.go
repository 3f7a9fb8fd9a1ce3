package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/models"
	"github.com/DoSvEinTe/proyecto-flota/internal/services"
)

// MaintenanceHandler handles maintenance events registered outside the cost workflow
type MaintenanceHandler struct {
	maintenanceRepo *database.MaintenanceRepository
	busRepo         *database.BusRepository
	engine          *services.CostAggregationService
	logger          *logrus.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler
func NewMaintenanceHandler(
	maintenanceRepo *database.MaintenanceRepository,
	busRepo *database.BusRepository,
	engine *services.CostAggregationService,
	logger *logrus.Logger,
) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceRepo: maintenanceRepo,
		busRepo:         busRepo,
		engine:          engine,
		logger:          logger,
	}
}

// ListMaintenance lists maintenance events, optionally for one bus
// GET /api/v1/maintenance?bus_id=
func (h *MaintenanceHandler) ListMaintenance(c *gin.Context) {
	items, err := h.maintenanceRepo.List(c.Request.Context(), c.Query("bus_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch maintenance")
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateMaintenance registers a maintenance event for a bus
// POST /api/v1/maintenance
func (h *MaintenanceHandler) CreateMaintenance(c *gin.Context) {
	var req models.MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.BusID == "" {
		respondError(c, h.logger, models.NewValidationError("bus_id", "bus is required"), "Failed to create maintenance")
		return
	}

	ctx := c.Request.Context()
	bus, err := h.busRepo.GetByID(ctx, req.BusID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create maintenance")
		return
	}
	item, err := req.Validate(bus, time.Now())
	if err != nil {
		respondError(c, h.logger, err, "Failed to create maintenance")
		return
	}
	if err := h.maintenanceRepo.Create(ctx, item); err != nil {
		respondError(c, h.logger, err, "Failed to create maintenance")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetMaintenance retrieves a maintenance event by ID
// GET /api/v1/maintenance/:id
func (h *MaintenanceHandler) GetMaintenance(c *gin.Context) {
	item, err := h.maintenanceRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch maintenance")
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateMaintenance edits a maintenance event and refreshes the costs of the
// cost records it is linked to. An empty bus_id keeps the current bus.
// PUT /api/v1/maintenance/:id
func (h *MaintenanceHandler) UpdateMaintenance(c *gin.Context) {
	var req models.MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	current, err := h.maintenanceRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update maintenance")
		return
	}
	busID := req.BusID
	if busID == "" {
		busID = current.BusID
	}
	bus, err := h.busRepo.GetByID(ctx, busID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update maintenance")
		return
	}
	item, err := req.Validate(bus, time.Now())
	if err != nil {
		respondError(c, h.logger, err, "Failed to update maintenance")
		return
	}
	item.ID = current.ID

	records, err := h.engine.UpdateMaintenance(ctx, item)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update maintenance")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"maintenance":  item,
		"cost_records": records,
	})
}

// DeleteMaintenance removes a maintenance event that no cost record uses
// DELETE /api/v1/maintenance/:id
func (h *MaintenanceHandler) DeleteMaintenance(c *gin.Context) {
	if err := h.maintenanceRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete maintenance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance deleted successfully"})
}
