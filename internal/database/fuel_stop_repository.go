package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const fuelStopColumns = `id, cost_record_id, sequence_number, odometer_reading, liters, price_per_liter,
	cost, distance_since_previous, location, stopped_at, receipt_url, notes, created_at`

// FuelStopRepository handles database operations for fuel stops
type FuelStopRepository struct {
	db DB
}

// NewFuelStopRepository creates a new FuelStopRepository
func NewFuelStopRepository(db DB) *FuelStopRepository {
	return &FuelStopRepository{db: db}
}

// Create inserts a fuel stop. The (cost_record_id, sequence_number) unique
// constraint rejects a colliding concurrent insert.
func (r *FuelStopRepository) Create(ctx context.Context, s *models.FuelStop) error {
	s.ID = uuid.New().String()
	query := `
		INSERT INTO fuel_stops (
			id, cost_record_id, sequence_number, odometer_reading, liters, price_per_liter,
			cost, distance_since_previous, location, stopped_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		s.ID, s.CostRecordID, s.SequenceNumber, s.OdometerReading, s.Liters, s.PricePerLiter,
		s.Cost, s.DistanceSincePrevious, s.Location, s.StoppedAt, s.Notes,
	).Scan(&s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("sequence_number",
				fmt.Sprintf("fuel stop %d already exists for this cost record", s.SequenceNumber))
		}
		return fmt.Errorf("failed to create fuel stop: %w", err)
	}
	return nil
}

// GetByID retrieves a fuel stop by ID
func (r *FuelStopRepository) GetByID(ctx context.Context, id string) (*models.FuelStop, error) {
	var s models.FuelStop
	query := `SELECT ` + fuelStopColumns + ` FROM fuel_stops WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &s, query, id); err != nil {
		return nil, getError(err, "fuel stop", id)
	}
	return &s, nil
}

// ListByCostRecord returns the stops of a cost record ordered by sequence number
func (r *FuelStopRepository) ListByCostRecord(ctx context.Context, costRecordID string) ([]models.FuelStop, error) {
	stops := []models.FuelStop{}
	query := `SELECT ` + fuelStopColumns + ` FROM fuel_stops WHERE cost_record_id = $1 ORDER BY sequence_number`
	if err := conn(ctx, r.db).SelectContext(ctx, &stops, query, costRecordID); err != nil {
		return nil, fmt.Errorf("failed to list fuel stops: %w", err)
	}
	return stops, nil
}

// Update rewrites the editable fields of a fuel stop. The cost record and
// the sequence number never change.
func (r *FuelStopRepository) Update(ctx context.Context, s *models.FuelStop) error {
	query := `
		UPDATE fuel_stops
		SET odometer_reading = $2, liters = $3, price_per_liter = $4, cost = $5,
		    distance_since_previous = $6, location = $7, stopped_at = $8, notes = $9
		WHERE id = $1
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.OdometerReading, s.Liters, s.PricePerLiter, s.Cost,
		s.DistanceSincePrevious, s.Location, s.StoppedAt, s.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update fuel stop: %w", err)
	}
	return expectOneRow(result, "fuel stop", s.ID)
}

// UpdateDistance rewrites the distance since the previous reading
func (r *FuelStopRepository) UpdateDistance(ctx context.Context, id string, distance int64) error {
	query := `UPDATE fuel_stops SET distance_since_previous = $2 WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, distance)
	if err != nil {
		return fmt.Errorf("failed to update fuel stop distance: %w", err)
	}
	return expectOneRow(result, "fuel stop", id)
}

// SetReceiptURL stores the uploaded receipt location
func (r *FuelStopRepository) SetReceiptURL(ctx context.Context, id, url string) error {
	query := `UPDATE fuel_stops SET receipt_url = $2 WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("failed to update fuel stop receipt: %w", err)
	}
	return expectOneRow(result, "fuel stop", id)
}

// Delete removes a fuel stop
func (r *FuelStopRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM fuel_stops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fuel stop: %w", err)
	}
	return expectOneRow(result, "fuel stop", id)
}
