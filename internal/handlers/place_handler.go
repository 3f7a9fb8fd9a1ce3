package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// PlaceHandler handles the places used as trip origins and destinations
type PlaceHandler struct {
	placeRepo *database.PlaceRepository
	logger    *logrus.Logger
}

// NewPlaceHandler creates a new PlaceHandler
func NewPlaceHandler(placeRepo *database.PlaceRepository, logger *logrus.Logger) *PlaceHandler {
	return &PlaceHandler{
		placeRepo: placeRepo,
		logger:    logger,
	}
}

// ListPlaces lists places, optionally filtered by name or city
// GET /api/v1/places?search=
func (h *PlaceHandler) ListPlaces(c *gin.Context) {
	places, err := h.placeRepo.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch places")
		return
	}
	c.JSON(http.StatusOK, places)
}

// CreatePlace registers a new place
// POST /api/v1/places
func (h *PlaceHandler) CreatePlace(c *gin.Context) {
	var req models.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, h.logger, err, "Failed to create place")
		return
	}

	place := req.ToPlace()
	if err := h.placeRepo.Create(c.Request.Context(), place); err != nil {
		respondError(c, h.logger, err, "Failed to create place")
		return
	}
	c.JSON(http.StatusCreated, place)
}

// GetPlace retrieves a place by ID
// GET /api/v1/places/:id
func (h *PlaceHandler) GetPlace(c *gin.Context) {
	place, err := h.placeRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch place")
		return
	}
	c.JSON(http.StatusOK, place)
}

// UpdatePlace replaces a place
// PUT /api/v1/places/:id
func (h *PlaceHandler) UpdatePlace(c *gin.Context) {
	var req models.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, h.logger, err, "Failed to update place")
		return
	}

	place := req.ToPlace()
	place.ID = c.Param("id")
	if err := h.placeRepo.Update(c.Request.Context(), place); err != nil {
		respondError(c, h.logger, err, "Failed to update place")
		return
	}
	c.JSON(http.StatusOK, place)
}

// DeletePlace removes a place that no trip uses
// DELETE /api/v1/places/:id
func (h *PlaceHandler) DeletePlace(c *gin.Context) {
	if err := h.placeRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete place")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Place deleted successfully"})
}
