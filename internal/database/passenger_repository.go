package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const passengerColumns = `id, full_name, national_id, passport, phone, email, notes, created_at, updated_at`

// PassengerRepository handles database operations for passengers
type PassengerRepository struct {
	db DB
}

// NewPassengerRepository creates a new PassengerRepository
func NewPassengerRepository(db DB) *PassengerRepository {
	return &PassengerRepository{db: db}
}

// Create inserts a new passenger
func (r *PassengerRepository) Create(ctx context.Context, p *models.Passenger) error {
	p.ID = uuid.New().String()
	query := `
		INSERT INTO passengers (id, full_name, national_id, passport, phone, email, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		p.ID, p.FullName, p.NationalID, p.Passport, p.Phone, p.Email, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create passenger: %w", err)
	}
	return nil
}

// GetByID retrieves a passenger by ID
func (r *PassengerRepository) GetByID(ctx context.Context, id string) (*models.Passenger, error) {
	var p models.Passenger
	query := `SELECT ` + passengerColumns + ` FROM passengers WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &p, query, id); err != nil {
		return nil, getError(err, "passenger", id)
	}
	return &p, nil
}

// List returns passengers ordered by name, optionally filtered by name or document
func (r *PassengerRepository) List(ctx context.Context, search string) ([]models.Passenger, error) {
	passengers := []models.Passenger{}
	query := `SELECT ` + passengerColumns + ` FROM passengers`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE full_name ILIKE $1 OR national_id ILIKE $1 OR passport ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY full_name`
	if err := conn(ctx, r.db).SelectContext(ctx, &passengers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list passengers: %w", err)
	}
	return passengers, nil
}

// Update replaces the editable fields of a passenger
func (r *PassengerRepository) Update(ctx context.Context, p *models.Passenger) error {
	query := `
		UPDATE passengers
		SET full_name = $2, national_id = $3, passport = $4, phone = $5, email = $6,
			notes = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		p.ID, p.FullName, p.NationalID, p.Passport, p.Phone, p.Email, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return getError(err, "passenger", p.ID)
	}
	return nil
}

// Delete removes a passenger and their trip bookings
func (r *PassengerRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM passengers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete passenger: %w", err)
	}
	return expectOneRow(result, "passenger", id)
}
