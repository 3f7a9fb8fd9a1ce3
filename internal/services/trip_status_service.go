package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// TripStatusService handles manual trip status changes and the
// administrative status sync
type TripStatusService struct {
	tx     Transactor
	trips  TripStore
	logger *logrus.Logger
}

// NewTripStatusService creates a new TripStatusService
func NewTripStatusService(tx Transactor, trips TripStore, logger *logrus.Logger) *TripStatusService {
	return &TripStatusService{
		tx:     tx,
		trips:  trips,
		logger: logger,
	}
}

// UpdateStatus moves a trip along its lifecycle
func (s *TripStatusService) UpdateStatus(ctx context.Context, tripID string, status models.TripStatus) (*models.Trip, error) {
	if !status.IsValid() {
		return nil, models.NewValidationError("status", fmt.Sprintf("unknown trip status %q", status))
	}

	var trip *models.Trip
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		trip, err = s.trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if !trip.Status.CanTransitionTo(status) {
			return models.NewValidationError("status",
				fmt.Sprintf("cannot change trip status from %s to %s", trip.Status, status))
		}
		if err := s.trips.UpdateStatus(ctx, tripID, status); err != nil {
			return err
		}
		trip.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id": tripID,
		"status":  status,
	}).Info("Trip status updated")
	return trip, nil
}

// CompleteCostedTrips marks every scheduled or running trip whose cost
// record is completed as completed
func (s *TripStatusService) CompleteCostedTrips(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.trips.CompleteCostedTrips(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("updated", len(ids)).Info("Trip status sync finished")
	return ids, nil
}
