package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const costRecordColumns = `id, trip_id, current_step, initial_odometer, final_odometer, fuel_cost,
	maintenance_cost, tolls_cost, other_costs, total_cost, notes, completed_at, created_at, updated_at`

// CostRecordRepository handles database operations for cost records
type CostRecordRepository struct {
	db DB
}

// NewCostRecordRepository creates a new CostRecordRepository
func NewCostRecordRepository(db DB) *CostRecordRepository {
	return &CostRecordRepository{db: db}
}

// Create inserts a new cost record; a second record for the same trip fails
// with DuplicateCostRecordError
func (r *CostRecordRepository) Create(ctx context.Context, c *models.CostRecord) error {
	c.ID = uuid.New().String()
	query := `
		INSERT INTO cost_records (
			id, trip_id, current_step, initial_odometer, final_odometer, fuel_cost,
			maintenance_cost, tolls_cost, other_costs, total_cost, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		c.ID, c.TripID, c.CurrentStep, c.InitialOdometer, c.FinalOdometer, c.FuelCost,
		c.MaintenanceCost, c.TollsCost, c.OtherCosts, c.TotalCost, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.DuplicateCostRecordError{TripID: c.TripID}
		}
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("trip", c.TripID)
		}
		return fmt.Errorf("failed to create cost record: %w", err)
	}
	return nil
}

// GetByID retrieves a cost record by ID
func (r *CostRecordRepository) GetByID(ctx context.Context, id string) (*models.CostRecord, error) {
	var c models.CostRecord
	query := `SELECT ` + costRecordColumns + ` FROM cost_records WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &c, query, id); err != nil {
		return nil, getError(err, "cost record", id)
	}
	return &c, nil
}

// GetByIDForUpdate retrieves a cost record and locks its row until the
// surrounding transaction ends. Must be called inside TxManager.WithinTx.
func (r *CostRecordRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.CostRecord, error) {
	var c models.CostRecord
	query := `SELECT ` + costRecordColumns + ` FROM cost_records WHERE id = $1 FOR UPDATE`
	if err := conn(ctx, r.db).GetContext(ctx, &c, query, id); err != nil {
		return nil, getError(err, "cost record", id)
	}
	return &c, nil
}

// GetByTripID retrieves the cost record of a trip
func (r *CostRecordRepository) GetByTripID(ctx context.Context, tripID string) (*models.CostRecord, error) {
	var c models.CostRecord
	query := `SELECT ` + costRecordColumns + ` FROM cost_records WHERE trip_id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &c, query, tripID); err != nil {
		return nil, getError(err, "cost record for trip", tripID)
	}
	return &c, nil
}

// List returns cost records matching the filter, newest first
func (r *CostRecordRepository) List(ctx context.Context, f models.CostRecordFilter) ([]models.CostRecord, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Step != "" {
		args = append(args, f.Step)
		conds = append(conds, fmt.Sprintf("c.current_step = $%d", len(args)))
	}
	if f.TripID != "" {
		args = append(args, f.TripID)
		conds = append(conds, fmt.Sprintf("c.trip_id = $%d", len(args)))
	}
	if f.BusID != "" {
		args = append(args, f.BusID)
		conds = append(conds, fmt.Sprintf("t.bus_id = $%d", len(args)))
	}

	query := `
		SELECT c.id, c.trip_id, c.current_step, c.initial_odometer, c.final_odometer, c.fuel_cost,
			c.maintenance_cost, c.tolls_cost, c.other_costs, c.total_cost, c.notes,
			c.completed_at, c.created_at, c.updated_at
		FROM cost_records c
		JOIN trips t ON t.id = c.trip_id
	`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY c.created_at DESC, c.id`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	records := []models.CostRecord{}
	if err := conn(ctx, r.db).SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cost records: %w", err)
	}
	return records, nil
}

// Update persists every mutable field of a cost record
func (r *CostRecordRepository) Update(ctx context.Context, c *models.CostRecord) error {
	query := `
		UPDATE cost_records
		SET current_step = $2, initial_odometer = $3, final_odometer = $4, fuel_cost = $5,
			maintenance_cost = $6, tolls_cost = $7, other_costs = $8, total_cost = $9,
			notes = $10, completed_at = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		c.ID, c.CurrentStep, c.InitialOdometer, c.FinalOdometer, c.FuelCost,
		c.MaintenanceCost, c.TollsCost, c.OtherCosts, c.TotalCost, c.Notes, c.CompletedAt,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return models.NewValidationError("cost_record", "cost record values violate a consistency rule")
		}
		return getError(err, "cost record", c.ID)
	}
	return nil
}

// Delete removes a cost record; fuel stops, tolls and maintenance links cascade
func (r *CostRecordRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cost_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cost record: %w", err)
	}
	return expectOneRow(result, "cost record", id)
}

// Summary aggregates cost records per bus for trips departing in [from, to)
func (r *CostRecordRepository) Summary(ctx context.Context, from, to time.Time, busID string) ([]models.CostSummaryRow, error) {
	args := []interface{}{from, to}
	busFilter := ""
	if busID != "" {
		args = append(args, busID)
		busFilter = ` AND t.bus_id = $3`
	}
	query := `
		SELECT b.id AS bus_id, b.license_plate,
			COUNT(c.id) AS trips,
			COALESCE(SUM(c.fuel_cost), 0) AS fuel_cost,
			COALESCE(SUM(c.maintenance_cost), 0) AS maintenance_cost,
			COALESCE(SUM(c.tolls_cost), 0) AS tolls_cost,
			COALESCE(SUM(c.other_costs), 0) AS other_costs,
			COALESCE(SUM(c.total_cost), 0) AS total_cost,
			COALESCE(SUM(c.final_odometer - c.initial_odometer), 0) AS kilometers
		FROM cost_records c
		JOIN trips t ON t.id = c.trip_id
		JOIN buses b ON b.id = t.bus_id
		WHERE t.departure_at >= $1 AND t.departure_at < $2` + busFilter + `
		GROUP BY b.id, b.license_plate
		ORDER BY b.license_plate
	`
	rows := []models.CostSummaryRow{}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize cost records: %w", err)
	}
	return rows, nil
}
