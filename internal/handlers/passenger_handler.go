package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// PassengerHandler handles passenger records
type PassengerHandler struct {
	passengerRepo *database.PassengerRepository
	logger        *logrus.Logger
}

// NewPassengerHandler creates a new PassengerHandler
func NewPassengerHandler(passengerRepo *database.PassengerRepository, logger *logrus.Logger) *PassengerHandler {
	return &PassengerHandler{
		passengerRepo: passengerRepo,
		logger:        logger,
	}
}

// ListPassengers lists passengers, optionally filtered by name or document
// GET /api/v1/passengers?search=
func (h *PassengerHandler) ListPassengers(c *gin.Context) {
	passengers, err := h.passengerRepo.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch passengers")
		return
	}
	c.JSON(http.StatusOK, passengers)
}

// CreatePassenger registers a passenger
// POST /api/v1/passengers
func (h *PassengerHandler) CreatePassenger(c *gin.Context) {
	var req models.PassengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	passenger, err := req.Validate()
	if err != nil {
		respondError(c, h.logger, err, "Failed to create passenger")
		return
	}
	if err := h.passengerRepo.Create(c.Request.Context(), passenger); err != nil {
		respondError(c, h.logger, err, "Failed to create passenger")
		return
	}
	c.JSON(http.StatusCreated, passenger)
}

// GetPassenger retrieves a passenger by ID
// GET /api/v1/passengers/:id
func (h *PassengerHandler) GetPassenger(c *gin.Context) {
	passenger, err := h.passengerRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch passenger")
		return
	}
	c.JSON(http.StatusOK, passenger)
}

// UpdatePassenger replaces a passenger
// PUT /api/v1/passengers/:id
func (h *PassengerHandler) UpdatePassenger(c *gin.Context) {
	var req models.PassengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	passenger, err := req.Validate()
	if err != nil {
		respondError(c, h.logger, err, "Failed to update passenger")
		return
	}
	passenger.ID = c.Param("id")
	if err := h.passengerRepo.Update(c.Request.Context(), passenger); err != nil {
		respondError(c, h.logger, err, "Failed to update passenger")
		return
	}
	c.JSON(http.StatusOK, passenger)
}

// DeletePassenger removes a passenger and their bookings
// DELETE /api/v1/passengers/:id
func (h *PassengerHandler) DeletePassenger(c *gin.Context) {
	if err := h.passengerRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete passenger")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Passenger deleted successfully"})
}
