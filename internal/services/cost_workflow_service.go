package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// CostWorkflowService drives a trip through the ordered cost data-entry steps.
// The position in the workflow is persisted on the cost record as current_step.
type CostWorkflowService struct {
	tx          Transactor
	costs       CostRecordStore
	trips       TripStore
	buses       BusStore
	stops       FuelStopStore
	maintenance MaintenanceStore
	engine      *CostAggregationService
	logger      *logrus.Logger
	now         Clock
}

// NewCostWorkflowService creates a new CostWorkflowService
func NewCostWorkflowService(
	tx Transactor,
	costs CostRecordStore,
	trips TripStore,
	buses BusStore,
	stops FuelStopStore,
	maintenance MaintenanceStore,
	engine *CostAggregationService,
	logger *logrus.Logger,
) *CostWorkflowService {
	return &CostWorkflowService{
		tx:          tx,
		costs:       costs,
		trips:       trips,
		buses:       buses,
		stops:       stops,
		maintenance: maintenance,
		engine:      engine,
		logger:      logger,
		now:         time.Now,
	}
}

// Start creates the empty cost record of a trip and moves a scheduled trip to in_progress
func (s *CostWorkflowService) Start(ctx context.Context, tripID string) (*models.CostRecord, error) {
	rec := &models.CostRecord{
		TripID:      tripID,
		CurrentStep: models.StepInitialOdometer,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		trip, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if _, err := s.costs.GetByTripID(ctx, tripID); err == nil {
			return &models.DuplicateCostRecordError{TripID: tripID}
		} else if !models.IsNotFound(err) {
			return err
		}

		if err := s.costs.Create(ctx, rec); err != nil {
			return err
		}
		if trip.Status == models.TripStatusScheduled {
			return s.trips.UpdateStatus(ctx, tripID, models.TripStatusInProgress)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":        tripID,
		"cost_record_id": rec.ID,
	}).Info("Cost workflow started")
	return rec, nil
}

// SetInitialOdometer stores the initial odometer reading
func (s *CostWorkflowService) SetInitialOdometer(ctx context.Context, costRecordID string, value int64) (*models.CostRecord, error) {
	return s.runStep(ctx, costRecordID, models.StepInitialOdometer, func(ctx context.Context, rec *models.CostRecord) error {
		if value < 0 {
			return models.NewValidationError("value", "odometer cannot be negative")
		}
		stops, err := s.stops.ListByCostRecord(ctx, rec.ID)
		if err != nil {
			return err
		}
		if len(stops) > 0 {
			first := stops[0]
			if value > first.OdometerReading {
				return models.NewValidationError("value",
					fmt.Sprintf("initial odometer cannot exceed fuel stop %d reading %d", first.SequenceNumber, first.OdometerReading))
			}
			if err := s.stops.UpdateDistance(ctx, first.ID, first.OdometerReading-value); err != nil {
				return err
			}
		}
		rec.InitialOdometer = &value
		return nil
	})
}

// RecordMaintenance registers a maintenance event for the trip's bus and
// links it to the cost record
func (s *CostWorkflowService) RecordMaintenance(ctx context.Context, costRecordID string, req *models.MaintenanceRequest) (*models.CostRecord, *models.Maintenance, error) {
	var created *models.Maintenance
	rec, err := s.runStep(ctx, costRecordID, models.StepMaintenance, func(ctx context.Context, rec *models.CostRecord) error {
		trip, err := s.trips.GetByID(ctx, rec.TripID)
		if err != nil {
			return err
		}
		bus, err := s.buses.GetByID(ctx, trip.BusID)
		if err != nil {
			return err
		}
		m, err := req.Validate(bus, s.now())
		if err != nil {
			return err
		}
		if err := s.maintenance.Create(ctx, m); err != nil {
			return err
		}
		if err := s.maintenance.Link(ctx, rec.ID, m.ID); err != nil {
			return err
		}
		created = m
		return s.engine.recomputeMaintenanceCost(ctx, rec)
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, created, nil
}

// SkipMaintenance moves past the maintenance step without registering anything
func (s *CostWorkflowService) SkipMaintenance(ctx context.Context, costRecordID string) (*models.CostRecord, error) {
	return s.runStep(ctx, costRecordID, models.StepMaintenance, nil)
}

// RecordTolls registers the tolls paid during the trip
func (s *CostWorkflowService) RecordTolls(ctx context.Context, costRecordID string, tolls []models.TollRequest) (*models.CostRecord, []models.Toll, error) {
	if len(tolls) == 0 {
		return nil, nil, models.NewValidationError("tolls", "at least one toll is required; skip the step instead")
	}
	var created []models.Toll
	rec, err := s.runStep(ctx, costRecordID, models.StepTolls, func(ctx context.Context, rec *models.CostRecord) error {
		var err error
		created, err = s.engine.addTolls(ctx, rec, tolls)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, created, nil
}

// SkipTolls moves past the tolls step
func (s *CostWorkflowService) SkipTolls(ctx context.Context, costRecordID string) (*models.CostRecord, error) {
	return s.runStep(ctx, costRecordID, models.StepTolls, nil)
}

// RecordFuelStops adds every stop in order; if one fails none is kept
func (s *CostWorkflowService) RecordFuelStops(ctx context.Context, costRecordID string, stops []models.FuelStopRequest) (*models.CostRecord, []models.FuelStop, error) {
	if len(stops) == 0 {
		return nil, nil, models.NewValidationError("stops", "at least one fuel stop is required; skip the step instead")
	}
	var created []models.FuelStop
	rec, err := s.runStep(ctx, costRecordID, models.StepFuelStops, func(ctx context.Context, rec *models.CostRecord) error {
		created = make([]models.FuelStop, 0, len(stops))
		for i := range stops {
			stop, err := s.engine.addFuelStop(ctx, rec, &stops[i])
			if err != nil {
				return err
			}
			created = append(created, *stop)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, created, nil
}

// SkipFuelStops moves past the fuel stops step
func (s *CostWorkflowService) SkipFuelStops(ctx context.Context, costRecordID string) (*models.CostRecord, error) {
	return s.runStep(ctx, costRecordID, models.StepFuelStops, nil)
}

// SetFinalOdometer stores the final reading and completes the workflow. The
// trip and, for a round trip, its linked leg are marked completed in the same
// transaction.
func (s *CostWorkflowService) SetFinalOdometer(ctx context.Context, costRecordID string, value int64) (*models.CostRecord, error) {
	var completedTrips []string
	rec, err := s.runStep(ctx, costRecordID, models.StepFinalOdometer, func(ctx context.Context, rec *models.CostRecord) error {
		if rec.InitialOdometer != nil && value <= *rec.InitialOdometer {
			return models.NewValidationError("value",
				fmt.Sprintf("final odometer must be greater than the initial odometer %d", *rec.InitialOdometer))
		}
		stops, err := s.stops.ListByCostRecord(ctx, rec.ID)
		if err != nil {
			return err
		}
		if n := len(stops); n > 0 && value < stops[n-1].OdometerReading {
			return models.NewValidationError("value",
				fmt.Sprintf("final odometer cannot be lower than fuel stop %d reading %d", stops[n-1].SequenceNumber, stops[n-1].OdometerReading))
		}

		trip, err := s.trips.GetByID(ctx, rec.TripID)
		if err != nil {
			return err
		}
		if err := s.trips.UpdateStatus(ctx, trip.ID, models.TripStatusCompleted); err != nil {
			return err
		}
		completedTrips = append(completedTrips, trip.ID)
		if trip.IsLinked() {
			if err := s.trips.UpdateStatus(ctx, *trip.LinkedTripID, models.TripStatusCompleted); err != nil {
				return err
			}
			completedTrips = append(completedTrips, *trip.LinkedTripID)
		}

		now := s.now()
		rec.FinalOdometer = &value
		rec.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"cost_record_id":  rec.ID,
		"total_cost":      rec.TotalCost,
		"completed_trips": completedTrips,
	}).Info("Cost workflow completed")
	return rec, nil
}

// runStep locks the record, checks that step may run, applies fn, advances
// current_step and persists, all in one transaction
func (s *CostWorkflowService) runStep(ctx context.Context, costRecordID string, step models.CostStep, fn func(ctx context.Context, rec *models.CostRecord) error) (*models.CostRecord, error) {
	var out *models.CostRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.costs.GetByIDForUpdate(ctx, costRecordID)
		if err != nil {
			return err
		}
		if err := checkStep(rec, step); err != nil {
			return err
		}
		if fn != nil {
			if err := fn(ctx, rec); err != nil {
				return err
			}
		}
		advance(rec, step)
		if err := s.engine.save(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"cost_record_id": costRecordID,
			"step":           step,
		}).Debug("Cost workflow step rejected")
		return nil, err
	}
	return out, nil
}

// checkStep allows a step that is the current one or an earlier one, as long
// as the workflow has not completed
func checkStep(rec *models.CostRecord, step models.CostStep) error {
	if rec.IsCompleted() {
		return &models.WorkflowError{Step: step, Current: rec.CurrentStep, Err: models.ErrWorkflowCompleted}
	}
	if step.Order() > rec.CurrentStep.Order() {
		return &models.WorkflowError{Step: step, Current: rec.CurrentStep, Err: models.ErrStepOutOfOrder}
	}
	return nil
}

// advance moves current_step past step; revisiting an earlier step never rewinds
func advance(rec *models.CostRecord, step models.CostStep) {
	if next := step.Next(); next.Order() > rec.CurrentStep.Order() {
		rec.CurrentStep = next
	}
}
