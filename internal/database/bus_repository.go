package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const busColumns = `id, license_plate, brand, model, year, capacity, entry_odometer,
	chassis_number, engine_number, status, acquired_on, notes, created_at, updated_at`

// BusRepository handles database operations for buses
type BusRepository struct {
	db DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db DB) *BusRepository {
	return &BusRepository{db: db}
}

// Create inserts a new bus
func (r *BusRepository) Create(ctx context.Context, bus *models.Bus) error {
	bus.ID = uuid.New().String()
	query := `
		INSERT INTO buses (
			id, license_plate, brand, model, year, capacity, entry_odometer,
			chassis_number, engine_number, status, acquired_on, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		bus.ID, bus.LicensePlate, bus.Brand, bus.Model, bus.Year, bus.Capacity, bus.EntryOdometer,
		bus.ChassisNumber, bus.EngineNumber, bus.Status, bus.AcquiredOn, bus.Notes,
	).Scan(&bus.CreatedAt, &bus.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("license_plate", "a bus with this license plate already exists")
		}
		return fmt.Errorf("failed to create bus: %w", err)
	}
	return nil
}

// GetByID retrieves a bus by its ID
func (r *BusRepository) GetByID(ctx context.Context, id string) (*models.Bus, error) {
	var bus models.Bus
	query := `SELECT ` + busColumns + ` FROM buses WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &bus, query, id); err != nil {
		return nil, getError(err, "bus", id)
	}
	return &bus, nil
}

// List returns buses ordered by plate, optionally filtered by status
func (r *BusRepository) List(ctx context.Context, status models.BusStatus) ([]models.Bus, error) {
	buses := []models.Bus{}
	query := `SELECT ` + busColumns + ` FROM buses`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY license_plate`
	if err := conn(ctx, r.db).SelectContext(ctx, &buses, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}
	return buses, nil
}

// Update replaces the editable fields of a bus
func (r *BusRepository) Update(ctx context.Context, bus *models.Bus) error {
	query := `
		UPDATE buses
		SET license_plate = $2, brand = $3, model = $4, year = $5, capacity = $6,
			entry_odometer = $7, chassis_number = $8, engine_number = $9, status = $10,
			acquired_on = $11, notes = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		bus.ID, bus.LicensePlate, bus.Brand, bus.Model, bus.Year, bus.Capacity,
		bus.EntryOdometer, bus.ChassisNumber, bus.EngineNumber, bus.Status,
		bus.AcquiredOn, bus.Notes,
	).Scan(&bus.CreatedAt, &bus.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("license_plate", "a bus with this license plate already exists")
		}
		return getError(err, "bus", bus.ID)
	}
	return nil
}

// Delete removes a bus that has no trips
func (r *BusRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM buses WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewValidationError("id", "bus has trips and cannot be deleted; mark it inactive instead")
		}
		return fmt.Errorf("failed to delete bus: %w", err)
	}
	return expectOneRow(result, "bus", id)
}
