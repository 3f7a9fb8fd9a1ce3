package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const maintenanceColumns = `m.id, m.bus_id, m.type, m.description, m.performed_on, m.odometer, m.cost,
	m.workshop, m.notes, m.created_at, m.updated_at`

// MaintenanceRepository handles database operations for maintenance events
// and their links to cost records
type MaintenanceRepository struct {
	db DB
}

// NewMaintenanceRepository creates a new MaintenanceRepository
func NewMaintenanceRepository(db DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Create inserts a maintenance event
func (r *MaintenanceRepository) Create(ctx context.Context, m *models.Maintenance) error {
	m.ID = uuid.New().String()
	query := `
		INSERT INTO maintenance (id, bus_id, type, description, performed_on, odometer, cost, workshop, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		m.ID, m.BusID, m.Type, m.Description, m.PerformedOn, m.Odometer, m.Cost, m.Workshop, m.Notes,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("bus", m.BusID)
		}
		return fmt.Errorf("failed to create maintenance: %w", err)
	}
	return nil
}

// GetByID retrieves a maintenance event by ID
func (r *MaintenanceRepository) GetByID(ctx context.Context, id string) (*models.Maintenance, error) {
	var m models.Maintenance
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance m WHERE m.id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &m, query, id); err != nil {
		return nil, getError(err, "maintenance", id)
	}
	return &m, nil
}

// Update rewrites a maintenance event
func (r *MaintenanceRepository) Update(ctx context.Context, m *models.Maintenance) error {
	query := `
		UPDATE maintenance
		SET bus_id = $2, type = $3, description = $4, performed_on = $5, odometer = $6,
		    cost = $7, workshop = $8, notes = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		m.ID, m.BusID, m.Type, m.Description, m.PerformedOn, m.Odometer, m.Cost, m.Workshop, m.Notes,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("bus", m.BusID)
		}
		return getError(err, "maintenance", m.ID)
	}
	return nil
}

// ListCostRecordIDs returns the cost records a maintenance event is linked to
func (r *MaintenanceRepository) ListCostRecordIDs(ctx context.Context, maintenanceID string) ([]string, error) {
	ids := []string{}
	query := `SELECT cost_record_id FROM cost_record_maintenance WHERE maintenance_id = $1 ORDER BY cost_record_id`
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query, maintenanceID); err != nil {
		return nil, fmt.Errorf("failed to list maintenance links: %w", err)
	}
	return ids, nil
}

// List returns maintenance events, newest first, optionally for one bus
func (r *MaintenanceRepository) List(ctx context.Context, busID string) ([]models.Maintenance, error) {
	items := []models.Maintenance{}
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance m`
	args := []interface{}{}
	if busID != "" {
		query += ` WHERE m.bus_id = $1`
		args = append(args, busID)
	}
	query += ` ORDER BY m.performed_on DESC, m.id`
	if err := conn(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list maintenance: %w", err)
	}
	return items, nil
}

// ListByIDs returns the maintenance events with the given IDs
func (r *MaintenanceRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Maintenance, error) {
	items := []models.Maintenance{}
	if len(ids) == 0 {
		return items, nil
	}
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance m WHERE m.id = ANY($1) ORDER BY m.performed_on, m.id`
	if err := conn(ctx, r.db).SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list maintenance by id: %w", err)
	}
	return items, nil
}

// ListByCostRecord returns the maintenance events linked to a cost record
func (r *MaintenanceRepository) ListByCostRecord(ctx context.Context, costRecordID string) ([]models.Maintenance, error) {
	items := []models.Maintenance{}
	query := `
		SELECT ` + maintenanceColumns + `
		FROM maintenance m
		JOIN cost_record_maintenance crm ON crm.maintenance_id = m.id
		WHERE crm.cost_record_id = $1
		ORDER BY m.performed_on, m.id
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &items, query, costRecordID); err != nil {
		return nil, fmt.Errorf("failed to list cost record maintenance: %w", err)
	}
	return items, nil
}

// Link associates a maintenance event with a cost record
func (r *MaintenanceRepository) Link(ctx context.Context, costRecordID, maintenanceID string) error {
	query := `
		INSERT INTO cost_record_maintenance (cost_record_id, maintenance_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, costRecordID, maintenanceID); err != nil {
		return fmt.Errorf("failed to link maintenance: %w", err)
	}
	return nil
}

// ReplaceLinks makes ids the exact maintenance set of a cost record
func (r *MaintenanceRepository) ReplaceLinks(ctx context.Context, costRecordID string, ids []string) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM cost_record_maintenance WHERE cost_record_id = $1`, costRecordID); err != nil {
		return fmt.Errorf("failed to clear maintenance links: %w", err)
	}
	for _, id := range ids {
		if err := r.Link(ctx, costRecordID, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteExclusive deletes the maintenance events linked to this cost record
// and to no other one, returning how many were removed
func (r *MaintenanceRepository) DeleteExclusive(ctx context.Context, costRecordID string) (int64, error) {
	query := `
		DELETE FROM maintenance m
		USING cost_record_maintenance crm
		WHERE crm.maintenance_id = m.id
		  AND crm.cost_record_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM cost_record_maintenance other
			WHERE other.maintenance_id = m.id AND other.cost_record_id <> $1
		  )
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, costRecordID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete exclusive maintenance: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes a maintenance event that no cost record references
func (r *MaintenanceRepository) Delete(ctx context.Context, id string) error {
	var linked int
	q := conn(ctx, r.db)
	if err := q.GetContext(ctx, &linked, `SELECT COUNT(*) FROM cost_record_maintenance WHERE maintenance_id = $1`, id); err != nil {
		return fmt.Errorf("failed to check maintenance links: %w", err)
	}
	if linked > 0 {
		return models.NewValidationError("id", "maintenance is linked to cost records; unlink it first")
	}
	result, err := q.ExecContext(ctx, `DELETE FROM maintenance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete maintenance: %w", err)
	}
	return expectOneRow(result, "maintenance", id)
}
