package models

import (
	"strings"
	"time"
)

// DateLayout is the format used for date-only request fields
const DateLayout = "2006-01-02"

// BusStatus represents the current operational status of a bus
type BusStatus string

const (
	BusStatusActive      BusStatus = "active"
	BusStatusMaintenance BusStatus = "maintenance"
	BusStatusInactive    BusStatus = "inactive"
)

// IsValid reports whether s is a known bus status
func (s BusStatus) IsValid() bool {
	switch s {
	case BusStatusActive, BusStatusMaintenance, BusStatusInactive:
		return true
	}
	return false
}

const (
	MinBusCapacity = 1
	MaxBusCapacity = 70
)

// Bus represents a fleet vehicle
type Bus struct {
	ID            string    `json:"id" db:"id"`
	LicensePlate  string    `json:"license_plate" db:"license_plate"`
	Brand         string    `json:"brand" db:"brand"`
	Model         string    `json:"model" db:"model"`
	Year          int       `json:"year" db:"year"`
	Capacity      int       `json:"capacity" db:"capacity"`
	EntryOdometer int64     `json:"entry_odometer" db:"entry_odometer"`
	ChassisNumber *string   `json:"chassis_number,omitempty" db:"chassis_number"`
	EngineNumber  *string   `json:"engine_number,omitempty" db:"engine_number"`
	Status        BusStatus `json:"status" db:"status"`
	AcquiredOn    time.Time `json:"acquired_on" db:"acquired_on"`
	Notes         *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// BusRequest represents the request to create or replace a bus
type BusRequest struct {
	LicensePlate  string  `json:"license_plate" binding:"required"`
	Brand         string  `json:"brand" binding:"required"`
	Model         string  `json:"model" binding:"required"`
	Year          int     `json:"year" binding:"required,gt=1900"`
	Capacity      int     `json:"capacity" binding:"required,min=1,max=70"`
	EntryOdometer int64   `json:"entry_odometer" binding:"min=0"`
	ChassisNumber *string `json:"chassis_number,omitempty"`
	EngineNumber  *string `json:"engine_number,omitempty"`
	Status        string  `json:"status,omitempty"`
	AcquiredOn    string  `json:"acquired_on" binding:"required"` // Format: YYYY-MM-DD
	Notes         *string `json:"notes,omitempty"`
}

// Validate checks the request against the fleet rules and returns the parsed bus
func (r *BusRequest) Validate(now time.Time) (*Bus, error) {
	plate := NormalizePlate(r.LicensePlate)
	if plate == "" {
		return nil, NewValidationError("license_plate", "license plate is required")
	}
	if r.Capacity < MinBusCapacity || r.Capacity > MaxBusCapacity {
		return nil, NewValidationError("capacity", "capacity must be between 1 and 70")
	}
	if r.Year > now.Year()+1 {
		return nil, NewValidationError("year", "year cannot be in the future")
	}
	if r.EntryOdometer < 0 {
		return nil, NewValidationError("entry_odometer", "entry odometer cannot be negative")
	}

	acquired, err := time.Parse(DateLayout, r.AcquiredOn)
	if err != nil {
		return nil, NewValidationError("acquired_on", "invalid date format, expected YYYY-MM-DD")
	}
	if acquired.After(now) {
		return nil, NewValidationError("acquired_on", "acquisition date cannot be in the future")
	}

	status := BusStatusActive
	if r.Status != "" {
		status = BusStatus(r.Status)
		if !status.IsValid() {
			return nil, NewValidationError("status", "status must be active, maintenance or inactive")
		}
	}

	return &Bus{
		LicensePlate:  plate,
		Brand:         strings.TrimSpace(r.Brand),
		Model:         strings.TrimSpace(r.Model),
		Year:          r.Year,
		Capacity:      r.Capacity,
		EntryOdometer: r.EntryOdometer,
		ChassisNumber: r.ChassisNumber,
		EngineNumber:  r.EngineNumber,
		Status:        status,
		AcquiredOn:    acquired,
		Notes:         r.Notes,
	}, nil
}

// NormalizePlate upper-cases a plate and strips separators ("ab-cd 12" -> "ABCD12")
func NormalizePlate(plate string) string {
	replacer := strings.NewReplacer("-", "", " ", "", "·", "", ".", "")
	return strings.ToUpper(replacer.Replace(strings.TrimSpace(plate)))
}
