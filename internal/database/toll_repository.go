package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const tollColumns = `id, trip_id, cost_record_id, location, amount, paid_at, receipt_url, notes, created_at`

// TollRepository handles database operations for tolls
type TollRepository struct {
	db DB
}

// NewTollRepository creates a new TollRepository
func NewTollRepository(db DB) *TollRepository {
	return &TollRepository{db: db}
}

// Create inserts a toll
func (r *TollRepository) Create(ctx context.Context, t *models.Toll) error {
	t.ID = uuid.New().String()
	query := `
		INSERT INTO tolls (id, trip_id, cost_record_id, location, amount, paid_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		t.ID, t.TripID, t.CostRecordID, t.Location, t.Amount, t.PaidAt, t.Notes,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create toll: %w", err)
	}
	return nil
}

// GetByID retrieves a toll by ID
func (r *TollRepository) GetByID(ctx context.Context, id string) (*models.Toll, error) {
	var t models.Toll
	query := `SELECT ` + tollColumns + ` FROM tolls WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &t, query, id); err != nil {
		return nil, getError(err, "toll", id)
	}
	return &t, nil
}

// ListByCostRecord returns the tolls linked to a cost record
func (r *TollRepository) ListByCostRecord(ctx context.Context, costRecordID string) ([]models.Toll, error) {
	tolls := []models.Toll{}
	query := `SELECT ` + tollColumns + ` FROM tolls WHERE cost_record_id = $1 ORDER BY paid_at, id`
	if err := conn(ctx, r.db).SelectContext(ctx, &tolls, query, costRecordID); err != nil {
		return nil, fmt.Errorf("failed to list tolls: %w", err)
	}
	return tolls, nil
}

// SetReceiptURL stores the uploaded receipt location
func (r *TollRepository) SetReceiptURL(ctx context.Context, id, url string) error {
	query := `UPDATE tolls SET receipt_url = $2 WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("failed to update toll receipt: %w", err)
	}
	return expectOneRow(result, "toll", id)
}

// Delete removes a toll
func (r *TollRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tolls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete toll: %w", err)
	}
	return expectOneRow(result, "toll", id)
}

// DeleteByCostRecord removes every toll linked to a cost record
func (r *TollRepository) DeleteByCostRecord(ctx context.Context, costRecordID string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tolls WHERE cost_record_id = $1`, costRecordID); err != nil {
		return fmt.Errorf("failed to delete tolls: %w", err)
	}
	return nil
}
