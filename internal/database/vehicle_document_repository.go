package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const documentColumns = `id, bus_id, type, number, issued_on, expires_on, file_url, notes, created_at`

// VehicleDocumentRepository handles database operations for bus documents
type VehicleDocumentRepository struct {
	db DB
}

// NewVehicleDocumentRepository creates a new VehicleDocumentRepository
func NewVehicleDocumentRepository(db DB) *VehicleDocumentRepository {
	return &VehicleDocumentRepository{db: db}
}

// Create inserts a document
func (r *VehicleDocumentRepository) Create(ctx context.Context, d *models.VehicleDocument) error {
	d.ID = uuid.New().String()
	query := `
		INSERT INTO vehicle_documents (id, bus_id, type, number, issued_on, expires_on, file_url, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		d.ID, d.BusID, d.Type, d.Number, d.IssuedOn, d.ExpiresOn, d.FileURL, d.Notes,
	).Scan(&d.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("bus", d.BusID)
		}
		return fmt.Errorf("failed to create vehicle document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *VehicleDocumentRepository) GetByID(ctx context.Context, id string) (*models.VehicleDocument, error) {
	var d models.VehicleDocument
	query := `SELECT ` + documentColumns + ` FROM vehicle_documents WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &d, query, id); err != nil {
		return nil, getError(err, "vehicle document", id)
	}
	return &d, nil
}

// Update rewrites a document. The bus it belongs to never changes.
func (r *VehicleDocumentRepository) Update(ctx context.Context, d *models.VehicleDocument) error {
	query := `
		UPDATE vehicle_documents
		SET type = $2, number = $3, issued_on = $4, expires_on = $5, file_url = $6, notes = $7
		WHERE id = $1
		RETURNING created_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		d.ID, d.Type, d.Number, d.IssuedOn, d.ExpiresOn, d.FileURL, d.Notes,
	).Scan(&d.CreatedAt)
	if err != nil {
		return getError(err, "vehicle document", d.ID)
	}
	return nil
}

// ListByBus returns the documents of a bus, soonest expiry first
func (r *VehicleDocumentRepository) ListByBus(ctx context.Context, busID string) ([]models.VehicleDocument, error) {
	docs := []models.VehicleDocument{}
	query := `SELECT ` + documentColumns + ` FROM vehicle_documents WHERE bus_id = $1 ORDER BY expires_on`
	if err := conn(ctx, r.db).SelectContext(ctx, &docs, query, busID); err != nil {
		return nil, fmt.Errorf("failed to list vehicle documents: %w", err)
	}
	return docs, nil
}

// ListExpiringBefore returns documents of every bus that expire before the given day
func (r *VehicleDocumentRepository) ListExpiringBefore(ctx context.Context, before time.Time) ([]models.VehicleDocument, error) {
	docs := []models.VehicleDocument{}
	query := `SELECT ` + documentColumns + ` FROM vehicle_documents WHERE expires_on <= $1 ORDER BY expires_on`
	if err := conn(ctx, r.db).SelectContext(ctx, &docs, query, before); err != nil {
		return nil, fmt.Errorf("failed to list expiring documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document
func (r *VehicleDocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM vehicle_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle document: %w", err)
	}
	return expectOneRow(result, "vehicle document", id)
}
