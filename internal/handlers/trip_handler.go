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

// TripHandler handles trips, their passengers and the entry points of the
// cost workflow
type TripHandler struct {
	tripRepo   *database.TripRepository
	linking    *services.TripLinkingService
	status     *services.TripStatusService
	passengers *services.TripPassengerService
	workflow   *services.CostWorkflowService
	reports    *services.CostReportService
	logger     *logrus.Logger
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(
	tripRepo *database.TripRepository,
	linking *services.TripLinkingService,
	status *services.TripStatusService,
	passengers *services.TripPassengerService,
	workflow *services.CostWorkflowService,
	reports *services.CostReportService,
	logger *logrus.Logger,
) *TripHandler {
	return &TripHandler{
		tripRepo:   tripRepo,
		linking:    linking,
		status:     status,
		passengers: passengers,
		workflow:   workflow,
		reports:    reports,
		logger:     logger,
	}
}

// ListTrips lists trips with optional filters
// GET /api/v1/trips?status=&bus_id=&driver_id=&from=YYYY-MM-DD&to=YYYY-MM-DD&without_cost_record=true&limit=&offset=
func (h *TripHandler) ListTrips(c *gin.Context) {
	filter, err := tripFilterFromQuery(c)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch trips")
		return
	}

	trips, err := h.tripRepo.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch trips")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trips":  trips,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func tripFilterFromQuery(c *gin.Context) (models.TripFilter, error) {
	filter := models.TripFilter{
		Status:            models.TripStatus(c.Query("status")),
		BusID:             c.Query("bus_id"),
		DriverID:          c.Query("driver_id"),
		WithoutCostRecord: c.Query("without_cost_record") == "true",
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, models.NewValidationError("status", "unknown trip status")
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return filter, models.NewValidationError("from", "invalid date format, expected YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return filter, models.NewValidationError("to", "invalid date format, expected YYYY-MM-DD")
		}
		// inclusive end date
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}

	var err error
	if filter.Limit, err = pageLimit(c); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pageLimit(c *gin.Context) (int, error) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		return 0, err
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, nil
}

// CreateTrip creates a single trip, or both legs of a round trip when
// is_round_trip is set
// POST /api/v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if !req.IsRoundTrip {
		trip, err := h.linking.CreateSingleTrip(ctx, &req)
		if err != nil {
			respondError(c, h.logger, err, "Failed to create trip")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"trip": trip})
		return
	}

	outbound, returnTrip, err := h.linking.CreateRoundTrip(ctx, &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create round trip")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"trip":        outbound,
		"return_trip": returnTrip,
	})
}

// GetTrip retrieves a trip with its places
// GET /api/v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.linking.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch trip")
		return
	}
	c.JSON(http.StatusOK, trip)
}

// UpdateTrip edits a trip; the return leg of an outbound trip follows it
// PUT /api/v1/trips/:id
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	var req models.UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	trip, partner, err := h.linking.UpdateTrip(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update trip")
		return
	}
	resp := gin.H{"trip": trip}
	if partner != nil {
		resp["return_trip"] = partner
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteTrip deletes a trip; a linked partner becomes a single trip
// DELETE /api/v1/trips/:id
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	if err := h.linking.DeleteTrip(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete trip")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trip deleted successfully"})
}

// UpdateTripStatus changes the lifecycle status of a trip
// PATCH /api/v1/trips/:id/status
func (h *TripHandler) UpdateTripStatus(c *gin.Context) {
	var req models.UpdateTripStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	trip, err := h.status.UpdateStatus(c.Request.Context(), c.Param("id"), models.TripStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update trip status")
		return
	}
	c.JSON(http.StatusOK, trip)
}

// RefreshDistance looks the driving distance of a trip up again
// POST /api/v1/trips/:id/distance
func (h *TripHandler) RefreshDistance(c *gin.Context) {
	trip, err := h.linking.RefreshDistance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to refresh trip distance")
		return
	}
	c.JSON(http.StatusOK, trip)
}

// ListTripPassengers lists the passengers booked on a trip
// GET /api/v1/trips/:id/passengers
func (h *TripHandler) ListTripPassengers(c *gin.Context) {
	passengers, err := h.passengers.ListPassengers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch trip passengers")
		return
	}
	c.JSON(http.StatusOK, passengers)
}

// AddTripPassenger books a passenger on a trip
// POST /api/v1/trips/:id/passengers
func (h *TripHandler) AddTripPassenger(c *gin.Context) {
	var req models.AddTripPassengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.passengers.AddPassenger(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to add passenger")
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// UpdateTripPassenger changes the seat and notes of a booking
// PUT /api/v1/trips/:id/passengers/:passengerId
func (h *TripHandler) UpdateTripPassenger(c *gin.Context) {
	var req models.UpdateTripPassengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.passengers.UpdatePassenger(c.Request.Context(), c.Param("id"), c.Param("passengerId"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update passenger")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// RemoveTripPassenger cancels a booking
// DELETE /api/v1/trips/:id/passengers/:passengerId
func (h *TripHandler) RemoveTripPassenger(c *gin.Context) {
	if err := h.passengers.RemovePassenger(c.Request.Context(), c.Param("id"), c.Param("passengerId")); err != nil {
		respondError(c, h.logger, err, "Failed to remove passenger")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Passenger removed from trip"})
}

// StartCostRecord opens the cost workflow for a trip
// POST /api/v1/trips/:id/cost-record
func (h *TripHandler) StartCostRecord(c *gin.Context) {
	record, err := h.workflow.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to start cost record")
		return
	}
	c.JSON(http.StatusCreated, record)
}

// SendDriverForm emails the printable trip form to the driver
// POST /api/v1/trips/:id/driver-form
func (h *TripHandler) SendDriverForm(c *gin.Context) {
	if err := h.reports.SendDriverForm(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to send driver form")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trip form sent to driver"})
}
