package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/database"
	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// BusHandler handles fleet buses and their legal documents
type BusHandler struct {
	busRepo      *database.BusRepository
	documentRepo *database.VehicleDocumentRepository
	logger       *logrus.Logger
}

// NewBusHandler creates a new BusHandler
func NewBusHandler(busRepo *database.BusRepository, documentRepo *database.VehicleDocumentRepository, logger *logrus.Logger) *BusHandler {
	return &BusHandler{
		busRepo:      busRepo,
		documentRepo: documentRepo,
		logger:       logger,
	}
}

// GetAllBuses retrieves all buses, optionally filtered by status
// GET /api/v1/buses?status=active
func (h *BusHandler) GetAllBuses(c *gin.Context) {
	status := models.BusStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active, maintenance or inactive"})
		return
	}

	buses, err := h.busRepo.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch buses")
		return
	}
	c.JSON(http.StatusOK, buses)
}

// CreateBus registers a new bus
// POST /api/v1/buses
func (h *BusHandler) CreateBus(c *gin.Context) {
	var req models.BusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	bus, err := req.Validate(time.Now())
	if err != nil {
		respondError(c, h.logger, err, "Failed to create bus")
		return
	}
	if err := h.busRepo.Create(c.Request.Context(), bus); err != nil {
		respondError(c, h.logger, err, "Failed to create bus")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"bus_id":        bus.ID,
		"license_plate": bus.LicensePlate,
	}).Info("Bus registered")
	c.JSON(http.StatusCreated, bus)
}

// GetBusByID retrieves a specific bus by ID
// GET /api/v1/buses/:id
func (h *BusHandler) GetBusByID(c *gin.Context) {
	bus, err := h.busRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch bus")
		return
	}
	c.JSON(http.StatusOK, bus)
}

// UpdateBus replaces a bus
// PUT /api/v1/buses/:id
func (h *BusHandler) UpdateBus(c *gin.Context) {
	var req models.BusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	bus, err := req.Validate(time.Now())
	if err != nil {
		respondError(c, h.logger, err, "Failed to update bus")
		return
	}
	bus.ID = c.Param("id")
	if err := h.busRepo.Update(c.Request.Context(), bus); err != nil {
		respondError(c, h.logger, err, "Failed to update bus")
		return
	}
	c.JSON(http.StatusOK, bus)
}

// DeleteBus removes a bus without trips
// DELETE /api/v1/buses/:id
func (h *BusHandler) DeleteBus(c *gin.Context) {
	if err := h.busRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete bus")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bus deleted successfully"})
}

// ListDocuments lists the documents of a bus with their expiry status
// GET /api/v1/buses/:id/documents
func (h *BusHandler) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	busID := c.Param("id")
	if _, err := h.busRepo.GetByID(ctx, busID); err != nil {
		respondError(c, h.logger, err, "Failed to fetch bus")
		return
	}

	docs, err := h.documentRepo.ListByBus(ctx, busID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch documents")
		return
	}
	c.JSON(http.StatusOK, withDocumentStatus(docs, time.Now()))
}

// CreateDocument registers a document for a bus
// POST /api/v1/buses/:id/documents
func (h *BusHandler) CreateDocument(c *gin.Context) {
	var req models.VehicleDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	doc, err := req.Validate(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to create document")
		return
	}
	if err := h.documentRepo.Create(c.Request.Context(), doc); err != nil {
		respondError(c, h.logger, err, "Failed to create document")
		return
	}
	doc.Status = doc.StatusAt(time.Now())
	c.JSON(http.StatusCreated, doc)
}

// UpdateDocument edits a vehicle document of the same bus
// PUT /api/v1/documents/:id
func (h *BusHandler) UpdateDocument(c *gin.Context) {
	var req models.VehicleDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	current, err := h.documentRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update document")
		return
	}
	doc, err := req.Validate(current.BusID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update document")
		return
	}
	doc.ID = current.ID
	if err := h.documentRepo.Update(ctx, doc); err != nil {
		respondError(c, h.logger, err, "Failed to update document")
		return
	}
	doc.Status = doc.StatusAt(time.Now())
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a vehicle document
// DELETE /api/v1/documents/:id
func (h *BusHandler) DeleteDocument(c *gin.Context) {
	if err := h.documentRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

// ListExpiringDocuments lists documents of every bus that expire within the
// given number of days (expired ones included)
// GET /api/v1/documents/expiring?days=30
func (h *BusHandler) ListExpiringDocuments(c *gin.Context) {
	days, err := queryInt(c, "days", models.ExpiryWarningDays)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch documents")
		return
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	docs, err := h.documentRepo.ListExpiringBefore(c.Request.Context(), today.AddDate(0, 0, days))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"days":      days,
		"documents": withDocumentStatus(docs, now),
	})
}

func withDocumentStatus(docs []models.VehicleDocument, now time.Time) []models.VehicleDocument {
	for i := range docs {
		docs[i].Status = docs[i].StatusAt(now)
	}
	return docs
}
