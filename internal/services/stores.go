package services

import (
	"context"
	"time"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// The interfaces below are satisfied by the repositories in internal/database.

// Transactor runs fn inside one all-or-nothing transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TripStore persists trips
type TripStore interface {
	Create(ctx context.Context, t *models.Trip) error
	GetByID(ctx context.Context, id string) (*models.Trip, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Trip, error)
	Update(ctx context.Context, t *models.Trip) error
	ListForReconciliation(ctx context.Context) ([]models.Trip, error)
	UpdateLink(ctx context.Context, id string, isRoundTrip bool, leg models.LegType, linkedTripID *string) error
	UpdateStatus(ctx context.Context, id string, status models.TripStatus) error
	UpdateDistance(ctx context.Context, id string, km float64) error
	CompleteCostedTrips(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// TripPassengerStore persists trip bookings
type TripPassengerStore interface {
	GetByIDForUpdate(ctx context.Context, id string) (*models.Trip, error)
	AddPassenger(ctx context.Context, tp *models.TripPassenger) error
	UpdatePassenger(ctx context.Context, tp *models.TripPassenger) error
	RemovePassenger(ctx context.Context, tripID, passengerID string) error
	ListPassengers(ctx context.Context, tripID string) ([]models.TripPassenger, error)
	CountPassengers(ctx context.Context, tripID string) (int, error)
}

// PlaceStore reads places
type PlaceStore interface {
	GetByID(ctx context.Context, id string) (*models.Place, error)
}

// BusStore reads buses
type BusStore interface {
	GetByID(ctx context.Context, id string) (*models.Bus, error)
}

// DriverStore reads drivers
type DriverStore interface {
	GetByID(ctx context.Context, id string) (*models.Driver, error)
}

// CostRecordStore persists cost records
type CostRecordStore interface {
	Create(ctx context.Context, c *models.CostRecord) error
	GetByID(ctx context.Context, id string) (*models.CostRecord, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.CostRecord, error)
	GetByTripID(ctx context.Context, tripID string) (*models.CostRecord, error)
	Update(ctx context.Context, c *models.CostRecord) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, from, to time.Time, busID string) ([]models.CostSummaryRow, error)
}

// FuelStopStore persists fuel stops
type FuelStopStore interface {
	Create(ctx context.Context, s *models.FuelStop) error
	GetByID(ctx context.Context, id string) (*models.FuelStop, error)
	ListByCostRecord(ctx context.Context, costRecordID string) ([]models.FuelStop, error)
	Update(ctx context.Context, s *models.FuelStop) error
	UpdateDistance(ctx context.Context, id string, distance int64) error
	SetReceiptURL(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

// TollStore persists tolls
type TollStore interface {
	Create(ctx context.Context, t *models.Toll) error
	GetByID(ctx context.Context, id string) (*models.Toll, error)
	ListByCostRecord(ctx context.Context, costRecordID string) ([]models.Toll, error)
	SetReceiptURL(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
	DeleteByCostRecord(ctx context.Context, costRecordID string) error
}

// MaintenanceStore persists maintenance events and their cost record links
type MaintenanceStore interface {
	Create(ctx context.Context, m *models.Maintenance) error
	GetByID(ctx context.Context, id string) (*models.Maintenance, error)
	Update(ctx context.Context, m *models.Maintenance) error
	ListCostRecordIDs(ctx context.Context, maintenanceID string) ([]string, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Maintenance, error)
	ListByCostRecord(ctx context.Context, costRecordID string) ([]models.Maintenance, error)
	Link(ctx context.Context, costRecordID, maintenanceID string) error
	ReplaceLinks(ctx context.Context, costRecordID string, ids []string) error
	DeleteExclusive(ctx context.Context, costRecordID string) (int64, error)
}

// DistanceCalculator returns the driving distance between two coordinates in km
type DistanceCalculator interface {
	DrivingDistanceKm(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error)
}

// Clock returns the current time
type Clock func() time.Time
