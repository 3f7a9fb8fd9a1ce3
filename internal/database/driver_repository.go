package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const driverColumns = `id, first_name, last_name, national_id, email, phone, license_number,
	license_categories, hired_on, active, created_at, updated_at`

// DriverRepository handles database operations for drivers
type DriverRepository struct {
	db DB
}

// NewDriverRepository creates a new DriverRepository
func NewDriverRepository(db DB) *DriverRepository {
	return &DriverRepository{db: db}
}

func driverUniqueError(err error) error {
	_, constraint := pqCode(err)
	if constraint == "drivers_email_key" {
		return models.NewValidationError("email", "a driver with this email already exists")
	}
	return models.NewValidationError("national_id", "a driver with this national ID already exists")
}

// Create inserts a new driver
func (r *DriverRepository) Create(ctx context.Context, d *models.Driver) error {
	d.ID = uuid.New().String()
	query := `
		INSERT INTO drivers (
			id, first_name, last_name, national_id, email, phone,
			license_number, license_categories, hired_on, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		d.ID, d.FirstName, d.LastName, d.NationalID, d.Email, d.Phone,
		d.LicenseNumber, d.LicenseCategories, d.HiredOn, d.Active,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return driverUniqueError(err)
		}
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

// GetByID retrieves a driver by ID
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	var d models.Driver
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &d, query, id); err != nil {
		return nil, getError(err, "driver", id)
	}
	return &d, nil
}

// List returns drivers ordered by last name
func (r *DriverRepository) List(ctx context.Context, activeOnly bool) ([]models.Driver, error) {
	drivers := []models.Driver{}
	query := `SELECT ` + driverColumns + ` FROM drivers`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY last_name, first_name`
	if err := conn(ctx, r.db).SelectContext(ctx, &drivers, query); err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	return drivers, nil
}

// Update replaces the editable fields of a driver
func (r *DriverRepository) Update(ctx context.Context, d *models.Driver) error {
	query := `
		UPDATE drivers
		SET first_name = $2, last_name = $3, national_id = $4, email = $5, phone = $6,
			license_number = $7, license_categories = $8, hired_on = $9, active = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		d.ID, d.FirstName, d.LastName, d.NationalID, d.Email, d.Phone,
		d.LicenseNumber, d.LicenseCategories, d.HiredOn, d.Active,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return driverUniqueError(err)
		}
		return getError(err, "driver", d.ID)
	}
	return nil
}

// Delete removes a driver without trips
func (r *DriverRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewValidationError("id", "driver has trips and cannot be deleted; deactivate instead")
		}
		return fmt.Errorf("failed to delete driver: %w", err)
	}
	return expectOneRow(result, "driver", id)
}
