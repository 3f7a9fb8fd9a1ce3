package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const placeColumns = `id, name, city, province, country, latitude, longitude, created_at, updated_at`

// PlaceRepository handles database operations for places
type PlaceRepository struct {
	db DB
}

// NewPlaceRepository creates a new PlaceRepository
func NewPlaceRepository(db DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// Create inserts a new place
func (r *PlaceRepository) Create(ctx context.Context, p *models.Place) error {
	p.ID = uuid.New().String()
	query := `
		INSERT INTO places (id, name, city, province, country, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		p.ID, p.Name, p.City, p.Province, p.Country, p.Latitude, p.Longitude,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("name", "a place with this name already exists in the city")
		}
		return fmt.Errorf("failed to create place: %w", err)
	}
	return nil
}

// GetByID retrieves a place by ID
func (r *PlaceRepository) GetByID(ctx context.Context, id string) (*models.Place, error) {
	var p models.Place
	query := `SELECT ` + placeColumns + ` FROM places WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &p, query, id); err != nil {
		return nil, getError(err, "place", id)
	}
	return &p, nil
}

// List returns places ordered by name, optionally filtered by a search term
func (r *PlaceRepository) List(ctx context.Context, search string) ([]models.Place, error) {
	places := []models.Place{}
	query := `SELECT ` + placeColumns + ` FROM places`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR city ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name, city`
	if err := conn(ctx, r.db).SelectContext(ctx, &places, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return places, nil
}

// Update replaces the editable fields of a place
func (r *PlaceRepository) Update(ctx context.Context, p *models.Place) error {
	query := `
		UPDATE places
		SET name = $2, city = $3, province = $4, country = $5,
			latitude = $6, longitude = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		p.ID, p.Name, p.City, p.Province, p.Country, p.Latitude, p.Longitude,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("name", "a place with this name already exists in the city")
		}
		return getError(err, "place", p.ID)
	}
	return nil
}

// Delete removes a place that no trip references
func (r *PlaceRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewValidationError("id", "place is used by existing trips")
		}
		return fmt.Errorf("failed to delete place: %w", err)
	}
	return expectOneRow(result, "place", id)
}
