package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// DriverHandler handles driver records
type DriverHandler struct {
	driverRepo *database.DriverRepository
	logger     *logrus.Logger
}

// NewDriverHandler creates a new DriverHandler
func NewDriverHandler(driverRepo *database.DriverRepository, logger *logrus.Logger) *DriverHandler {
	return &DriverHandler{
		driverRepo: driverRepo,
		logger:     logger,
	}
}

// ListDrivers lists drivers; ?active=true keeps only active ones
// GET /api/v1/drivers
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.driverRepo.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch drivers")
		return
	}
	c.JSON(http.StatusOK, drivers)
}

// CreateDriver registers a driver
// POST /api/v1/drivers
func (h *DriverHandler) CreateDriver(c *gin.Context) {
	var req models.DriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	driver, err := req.Validate(time.Now())
	if err != nil {
		respondError(c, h.logger, err, "Failed to create driver")
		return
	}
	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		respondError(c, h.logger, err, "Failed to create driver")
		return
	}
	c.JSON(http.StatusCreated, driver)
}

// GetDriver retrieves a driver by ID
// GET /api/v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch driver")
		return
	}
	c.JSON(http.StatusOK, driver)
}

// UpdateDriver replaces a driver
// PUT /api/v1/drivers/:id
func (h *DriverHandler) UpdateDriver(c *gin.Context) {
	var req models.DriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	driver, err := req.Validate(time.Now())
	if err != nil {
		respondError(c, h.logger, err, "Failed to update driver")
		return
	}
	driver.ID = c.Param("id")
	if err := h.driverRepo.Update(c.Request.Context(), driver); err != nil {
		respondError(c, h.logger, err, "Failed to update driver")
		return
	}
	c.JSON(http.StatusOK, driver)
}

// DeleteDriver removes a driver without trips
// DELETE /api/v1/drivers/:id
func (h *DriverHandler) DeleteDriver(c *gin.Context) {
	if err := h.driverRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete driver")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver deleted successfully"})
}
