package models

import (
	"strings"
	"time"
)

// MaintenanceType classifies a maintenance event
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventive"
	MaintenanceCorrective MaintenanceType = "corrective"
	MaintenancePredictive MaintenanceType = "predictive"
	MaintenanceMechanical MaintenanceType = "mechanical"
	MaintenanceElectrical MaintenanceType = "electrical"
	MaintenanceOther      MaintenanceType = "other"
)

// IsValid reports whether t is a known maintenance type
func (t MaintenanceType) IsValid() bool {
	switch t {
	case MaintenancePreventive, MaintenanceCorrective, MaintenancePredictive,
		MaintenanceMechanical, MaintenanceElectrical, MaintenanceOther:
		return true
	}
	return false
}

// Maintenance is a service event performed on a bus
type Maintenance struct {
	ID          string          `json:"id" db:"id"`
	BusID       string          `json:"bus_id" db:"bus_id"`
	Type        MaintenanceType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	PerformedOn time.Time       `json:"performed_on" db:"performed_on"`
	Odometer    int64           `json:"odometer" db:"odometer"`
	Cost        int64           `json:"cost" db:"cost"`
	Workshop    *string         `json:"workshop,omitempty" db:"workshop"`
	Notes       *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// MaintenanceRequest describes a maintenance event to register
type MaintenanceRequest struct {
	BusID       string  `json:"bus_id" binding:"omitempty,uuid"`
	Type        string  `json:"type" binding:"required"`
	Description string  `json:"description" binding:"required"`
	PerformedOn string  `json:"performed_on" binding:"required"` // Format: YYYY-MM-DD
	Odometer    *int64  `json:"odometer" binding:"required,min=0"`
	Cost        *int64  `json:"cost" binding:"required,min=0"`
	Workshop    *string `json:"workshop,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// Validate checks the request against the bus it belongs to
func (r *MaintenanceRequest) Validate(bus *Bus, now time.Time) (*Maintenance, error) {
	t := MaintenanceType(r.Type)
	if !t.IsValid() {
		return nil, NewValidationError("type", "unknown maintenance type")
	}
	if strings.TrimSpace(r.Description) == "" {
		return nil, NewValidationError("description", "description is required")
	}
	performed, err := time.Parse(DateLayout, r.PerformedOn)
	if err != nil {
		return nil, NewValidationError("performed_on", "invalid date format, expected YYYY-MM-DD")
	}
	if performed.After(now) {
		return nil, NewValidationError("performed_on", "maintenance date cannot be in the future")
	}
	if r.Cost == nil || *r.Cost < 0 {
		return nil, NewValidationError("cost", "cost must be zero or greater")
	}
	if r.Odometer == nil {
		return nil, NewValidationError("odometer", "odometer is required")
	}
	if *r.Odometer < bus.EntryOdometer {
		return nil, NewValidationError("odometer", "odometer cannot be lower than the bus entry odometer")
	}
	return &Maintenance{
		BusID:       bus.ID,
		Type:        t,
		Description: strings.TrimSpace(r.Description),
		PerformedOn: performed,
		Odometer:    *r.Odometer,
		Cost:        *r.Cost,
		Workshop:    r.Workshop,
		Notes:       r.Notes,
	}, nil
}
