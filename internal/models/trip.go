package models

import (
	"time"
)

// TripStatus represents the lifecycle status of a trip
type TripStatus string

const (
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

// IsValid reports whether s is a known trip status
func (s TripStatus) IsValid() bool {
	switch s {
	case TripStatusScheduled, TripStatusInProgress, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a manual status change from s to next is allowed
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	switch s {
	case TripStatusScheduled:
		return next == TripStatusInProgress || next == TripStatusCancelled
	case TripStatusInProgress:
		return next == TripStatusCompleted || next == TripStatusCancelled
	}
	return false
}

// LegType classifies a trip inside a round trip pair
type LegType string

const (
	LegTypeOutbound LegType = "outbound"
	LegTypeReturn   LegType = "return"
	LegTypeSingle   LegType = "single"
)

// Trip represents one scheduled journey of a bus with a driver
type Trip struct {
	ID            string     `json:"id" db:"id"`
	BusID         string     `json:"bus_id" db:"bus_id"`
	DriverID      string     `json:"driver_id" db:"driver_id"`
	OriginID      string     `json:"origin_id" db:"origin_id"`
	DestinationID string     `json:"destination_id" db:"destination_id"`
	DepartureAt   time.Time  `json:"departure_at" db:"departure_at"`
	ArrivalAt     time.Time  `json:"arrival_at" db:"arrival_at"`
	Status        TripStatus `json:"status" db:"status"`
	IsRoundTrip   bool       `json:"is_round_trip" db:"is_round_trip"`
	LegType       LegType    `json:"leg_type" db:"leg_type"`
	LinkedTripID  *string    `json:"linked_trip_id,omitempty" db:"linked_trip_id"`
	DistanceKm    *float64   `json:"distance_km,omitempty" db:"distance_km"`
	Notes         *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`

	Origin      *Place `json:"origin,omitempty" db:"-"`
	Destination *Place `json:"destination,omitempty" db:"-"`
}

// Duration returns the planned duration of the trip
func (t *Trip) Duration() time.Duration {
	return t.ArrivalAt.Sub(t.DepartureAt)
}

// IsLinked reports whether the trip points to a partner leg
func (t *Trip) IsLinked() bool {
	return t.LinkedTripID != nil && *t.LinkedTripID != ""
}

// TripFilter narrows trip listings
type TripFilter struct {
	Status   TripStatus
	BusID    string
	DriverID string
	From     *time.Time
	To       *time.Time
	// WithoutCostRecord keeps only trips that have no cost record yet
	WithoutCostRecord bool
	Limit             int
	Offset            int
}

// CreateTripRequest represents the request to create a trip (single or round trip)
type CreateTripRequest struct {
	BusID         string    `json:"bus_id" binding:"required,uuid"`
	DriverID      string    `json:"driver_id" binding:"required,uuid"`
	OriginID      string    `json:"origin_id" binding:"required,uuid"`
	DestinationID string    `json:"destination_id" binding:"required,uuid"`
	DepartureAt   time.Time `json:"departure_at" binding:"required"`
	ArrivalAt     time.Time `json:"arrival_at" binding:"required"`
	IsRoundTrip   bool      `json:"is_round_trip"`
	Notes         *string   `json:"notes,omitempty"`
}

// Validate checks the time window of the trip against now
func (r *CreateTripRequest) Validate(now time.Time) error {
	if r.OriginID == r.DestinationID {
		return NewValidationError("destination_id", "origin and destination must differ")
	}
	if r.DepartureAt.IsZero() {
		return NewValidationError("departure_at", "departure is required")
	}
	if r.ArrivalAt.IsZero() {
		return NewValidationError("arrival_at", "estimated arrival is required")
	}
	if !r.DepartureAt.Before(r.ArrivalAt) {
		return NewValidationError("arrival_at", "departure must be before arrival")
	}
	if r.DepartureAt.Before(now) {
		return NewValidationError("departure_at", "departure cannot be in the past")
	}
	return nil
}

// UpdateTripRequest edits an existing trip. The round trip pairing is fixed
// at creation; IsRoundTrip, when sent, must match the stored value.
type UpdateTripRequest struct {
	BusID         string    `json:"bus_id" binding:"required,uuid"`
	DriverID      string    `json:"driver_id" binding:"required,uuid"`
	OriginID      string    `json:"origin_id" binding:"required,uuid"`
	DestinationID string    `json:"destination_id" binding:"required,uuid"`
	DepartureAt   time.Time `json:"departure_at" binding:"required"`
	ArrivalAt     time.Time `json:"arrival_at" binding:"required"`
	IsRoundTrip   *bool     `json:"is_round_trip,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

// Validate checks the edit against the stored trip. A departure already in
// the past is accepted as long as it is not moved.
func (r *UpdateTripRequest) Validate(current *Trip, now time.Time) error {
	if current.Status == TripStatusCompleted || current.Status == TripStatusCancelled {
		return NewValidationError("status", "a "+string(current.Status)+" trip cannot be edited")
	}
	if r.IsRoundTrip != nil && *r.IsRoundTrip != current.IsRoundTrip {
		return NewValidationError("is_round_trip", "round trip pairing cannot be changed")
	}
	if r.OriginID == r.DestinationID {
		return NewValidationError("destination_id", "origin and destination must differ")
	}
	if r.DepartureAt.IsZero() {
		return NewValidationError("departure_at", "departure is required")
	}
	if r.ArrivalAt.IsZero() {
		return NewValidationError("arrival_at", "estimated arrival is required")
	}
	if !r.DepartureAt.Before(r.ArrivalAt) {
		return NewValidationError("arrival_at", "departure must be before arrival")
	}
	if !r.DepartureAt.Equal(current.DepartureAt) && r.DepartureAt.Before(now) {
		return NewValidationError("departure_at", "departure cannot be in the past")
	}
	return nil
}

// UpdateTripStatusRequest changes a trip status manually
type UpdateTripStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TripLinkChange describes one trip modified by link reconciliation
type TripLinkChange struct {
	TripID              string  `json:"trip_id"`
	PreviousIsRoundTrip bool    `json:"previous_is_round_trip"`
	IsRoundTrip         bool    `json:"is_round_trip"`
	PreviousLegType     LegType `json:"previous_leg_type"`
	LegType             LegType `json:"leg_type"`
	PreviousLinkID      *string `json:"previous_linked_trip_id,omitempty"`
	LinkedTripID        *string `json:"linked_trip_id,omitempty"`
}

// ReconcileReport summarizes a link reconciliation run
type ReconcileReport struct {
	Examined int              `json:"examined"`
	Updated  int              `json:"updated"`
	DryRun   bool             `json:"dry_run"`
	Changes  []TripLinkChange `json:"changes"`
}
