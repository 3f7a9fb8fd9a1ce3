package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

const tripColumns = `id, bus_id, driver_id, origin_id, destination_id, departure_at, arrival_at,
	status, is_round_trip, leg_type, linked_trip_id, distance_km, notes, created_at, updated_at`

// TripRepository handles database operations for trips and their passengers
type TripRepository struct {
	db DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db DB) *TripRepository {
	return &TripRepository{db: db}
}

// Create inserts a new trip. A non-nil LinkedTripID must already exist.
func (r *TripRepository) Create(ctx context.Context, t *models.Trip) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	query := `
		INSERT INTO trips (
			id, bus_id, driver_id, origin_id, destination_id, departure_at, arrival_at,
			status, is_round_trip, leg_type, linked_trip_id, distance_km, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		t.ID, t.BusID, t.DriverID, t.OriginID, t.DestinationID, t.DepartureAt, t.ArrivalAt,
		t.Status, t.IsRoundTrip, t.LegType, t.LinkedTripID, t.DistanceKm, t.Notes,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewValidationError("trip", "bus, driver, origin or destination does not exist")
		}
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetByID retrieves a trip by ID
func (r *TripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	var t models.Trip
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &t, query, id); err != nil {
		return nil, getError(err, "trip", id)
	}
	return &t, nil
}

// GetByIDForUpdate retrieves a trip and locks its row until the surrounding
// transaction ends
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Trip, error) {
	var t models.Trip
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`
	if err := conn(ctx, r.db).GetContext(ctx, &t, query, id); err != nil {
		return nil, getError(err, "trip", id)
	}
	return &t, nil
}

// List returns trips matching the filter, latest departure first
func (r *TripRepository) List(ctx context.Context, f models.TripFilter) ([]models.Trip, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.BusID != "" {
		add("bus_id = $%d", f.BusID)
	}
	if f.DriverID != "" {
		add("driver_id = $%d", f.DriverID)
	}
	if f.From != nil {
		add("departure_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("departure_at < $%d", *f.To)
	}
	if f.WithoutCostRecord {
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM cost_records c WHERE c.trip_id = trips.id)")
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY departure_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	trips := []models.Trip{}
	if err := conn(ctx, r.db).SelectContext(ctx, &trips, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}

// ListForReconciliation returns every trip that takes part in, or claims to
// take part in, a round trip pair
func (r *TripRepository) ListForReconciliation(ctx context.Context) ([]models.Trip, error) {
	trips := []models.Trip{}
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE is_round_trip = TRUE OR linked_trip_id IS NOT NULL OR leg_type <> 'single'
		ORDER BY departure_at, id
		FOR UPDATE
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &trips, query); err != nil {
		return nil, fmt.Errorf("failed to list trips for reconciliation: %w", err)
	}
	return trips, nil
}

// Update writes the schedule, route, assignment, distance and notes of a
// trip. The pairing fields and the status are left alone.
func (r *TripRepository) Update(ctx context.Context, t *models.Trip) error {
	query := `
		UPDATE trips
		SET bus_id = $2, driver_id = $3, origin_id = $4, destination_id = $5,
		    departure_at = $6, arrival_at = $7, distance_km = $8, notes = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		t.ID, t.BusID, t.DriverID, t.OriginID, t.DestinationID, t.DepartureAt, t.ArrivalAt, t.DistanceKm, t.Notes,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewValidationError("trip", "bus, driver, origin or destination does not exist")
		}
		return getError(err, "trip", t.ID)
	}
	return nil
}

// UpdateLink writes the round trip fields of a trip
func (r *TripRepository) UpdateLink(ctx context.Context, id string, isRoundTrip bool, leg models.LegType, linkedTripID *string) error {
	query := `
		UPDATE trips
		SET is_round_trip = $2, leg_type = $3, linked_trip_id = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, isRoundTrip, leg, linkedTripID)
	if err != nil {
		return fmt.Errorf("failed to update trip link: %w", err)
	}
	return expectOneRow(result, "trip", id)
}

// UpdateStatus sets the status of a trip
func (r *TripRepository) UpdateStatus(ctx context.Context, id string, status models.TripStatus) error {
	query := `UPDATE trips SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	return expectOneRow(result, "trip", id)
}

// UpdateDistance stores the computed driving distance of a trip
func (r *TripRepository) UpdateDistance(ctx context.Context, id string, km float64) error {
	query := `UPDATE trips SET distance_km = $2, updated_at = NOW() WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, km)
	if err != nil {
		return fmt.Errorf("failed to update trip distance: %w", err)
	}
	return expectOneRow(result, "trip", id)
}

// CompleteCostedTrips marks scheduled or running trips whose cost record is
// completed as completed and returns their IDs
func (r *TripRepository) CompleteCostedTrips(ctx context.Context) ([]string, error) {
	ids := []string{}
	query := `
		UPDATE trips t
		SET status = 'completed', updated_at = NOW()
		FROM cost_records c
		WHERE c.trip_id = t.id
		  AND c.current_step = 'completed'
		  AND t.status IN ('scheduled', 'in_progress')
		RETURNING t.id
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to complete costed trips: %w", err)
	}
	return ids, nil
}

// Delete removes a trip; its cost record, tolls and bookings cascade
func (r *TripRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return expectOneRow(result, "trip", id)
}

// AddPassenger books a passenger on a trip
func (r *TripRepository) AddPassenger(ctx context.Context, tp *models.TripPassenger) error {
	query := `
		INSERT INTO trip_passengers (trip_id, passenger_id, seat, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query, tp.TripID, tp.PassengerID, tp.Seat, tp.Notes).Scan(&tp.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("passenger_id", "passenger is already booked on this trip")
		}
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("passenger", tp.PassengerID)
		}
		return fmt.Errorf("failed to add passenger to trip: %w", err)
	}
	return nil
}

// UpdatePassenger rewrites the seat and notes of a booking
func (r *TripRepository) UpdatePassenger(ctx context.Context, tp *models.TripPassenger) error {
	query := `
		UPDATE trip_passengers tp
		SET seat = $3, notes = $4
		FROM passengers p
		WHERE p.id = tp.passenger_id AND tp.trip_id = $1 AND tp.passenger_id = $2
		RETURNING tp.trip_id, tp.passenger_id, tp.seat, tp.notes, p.full_name, tp.created_at
	`
	err := conn(ctx, r.db).QueryRowxContext(ctx, query, tp.TripID, tp.PassengerID, tp.Seat, tp.Notes).StructScan(tp)
	if err != nil {
		return getError(err, "trip passenger", tp.PassengerID)
	}
	return nil
}

// RemovePassenger cancels a booking
func (r *TripRepository) RemovePassenger(ctx context.Context, tripID, passengerID string) error {
	query := `DELETE FROM trip_passengers WHERE trip_id = $1 AND passenger_id = $2`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, tripID, passengerID)
	if err != nil {
		return fmt.Errorf("failed to remove passenger from trip: %w", err)
	}
	return expectOneRow(result, "trip passenger", passengerID)
}

// ListPassengers returns the passengers booked on a trip
func (r *TripRepository) ListPassengers(ctx context.Context, tripID string) ([]models.TripPassenger, error) {
	passengers := []models.TripPassenger{}
	query := `
		SELECT tp.trip_id, tp.passenger_id, tp.seat, tp.notes, p.full_name, tp.created_at
		FROM trip_passengers tp
		JOIN passengers p ON p.id = tp.passenger_id
		WHERE tp.trip_id = $1
		ORDER BY p.full_name
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &passengers, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to list trip passengers: %w", err)
	}
	return passengers, nil
}

// CountPassengers returns the number of passengers booked on a trip
func (r *TripRepository) CountPassengers(ctx context.Context, tripID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM trip_passengers WHERE trip_id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, tripID); err != nil {
		return 0, fmt.Errorf("failed to count trip passengers: %w", err)
	}
	return count, nil
}
