package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// TripPassengerService books passengers on trips within the bus capacity
type TripPassengerService struct {
	tx         Transactor
	passengers TripPassengerStore
	buses      BusStore
	logger     *logrus.Logger
}

// NewTripPassengerService creates a new TripPassengerService
func NewTripPassengerService(tx Transactor, passengers TripPassengerStore, buses BusStore, logger *logrus.Logger) *TripPassengerService {
	return &TripPassengerService{
		tx:         tx,
		passengers: passengers,
		buses:      buses,
		logger:     logger,
	}
}

// AddPassenger books a passenger. The trip row is locked so concurrent
// bookings cannot exceed the bus capacity.
func (s *TripPassengerService) AddPassenger(ctx context.Context, tripID string, req *models.AddTripPassengerRequest) (*models.TripPassenger, error) {
	tp := &models.TripPassenger{
		TripID:      tripID,
		PassengerID: req.PassengerID,
		Seat:        req.Seat,
		Notes:       req.Notes,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		trip, err := s.passengers.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.Status == models.TripStatusCancelled || trip.Status == models.TripStatusCompleted {
			return models.NewValidationError("trip_id", fmt.Sprintf("cannot book passengers on a %s trip", trip.Status))
		}
		bus, err := s.buses.GetByID(ctx, trip.BusID)
		if err != nil {
			return err
		}
		count, err := s.passengers.CountPassengers(ctx, tripID)
		if err != nil {
			return err
		}
		if count >= bus.Capacity {
			return models.NewValidationError("passenger_id",
				fmt.Sprintf("bus %s is full (%d seats)", bus.LicensePlate, bus.Capacity))
		}
		return s.passengers.AddPassenger(ctx, tp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":      tripID,
		"passenger_id": req.PassengerID,
	}).Info("Passenger booked")
	return tp, nil
}

// UpdatePassenger changes the seat and notes of a booking. A blank seat
// clears it.
func (s *TripPassengerService) UpdatePassenger(ctx context.Context, tripID, passengerID string, req *models.UpdateTripPassengerRequest) (*models.TripPassenger, error) {
	tp := &models.TripPassenger{
		TripID:      tripID,
		PassengerID: passengerID,
		Notes:       req.Notes,
	}
	if req.Seat != nil {
		if seat := strings.TrimSpace(*req.Seat); seat != "" {
			tp.Seat = &seat
		}
	}
	if err := s.passengers.UpdatePassenger(ctx, tp); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":      tripID,
		"passenger_id": passengerID,
	}).Debug("Booking updated")
	return tp, nil
}

// RemovePassenger cancels a booking
func (s *TripPassengerService) RemovePassenger(ctx context.Context, tripID, passengerID string) error {
	return s.passengers.RemovePassenger(ctx, tripID, passengerID)
}

// ListPassengers returns the passengers booked on a trip
func (s *TripPassengerService) ListPassengers(ctx context.Context, tripID string) ([]models.TripPassenger, error) {
	return s.passengers.ListPassengers(ctx, tripID)
}
