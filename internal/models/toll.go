package models

import (
	"strings"
	"time"
)

// Toll is a toll payment made during a trip
type Toll struct {
	ID           string    `json:"id" db:"id"`
	TripID       string    `json:"trip_id" db:"trip_id"`
	CostRecordID *string   `json:"cost_record_id,omitempty" db:"cost_record_id"`
	Location     string    `json:"location" db:"location"`
	Amount       int64     `json:"amount" db:"amount"`
	PaidAt       time.Time `json:"paid_at" db:"paid_at"`
	ReceiptURL   *string   `json:"receipt_url,omitempty" db:"receipt_url"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TollRequest describes a toll to register
type TollRequest struct {
	Location string    `json:"location" binding:"required"`
	Amount   *int64    `json:"amount" binding:"required,min=0"`
	PaidAt   time.Time `json:"paid_at" binding:"required"`
	Notes    *string   `json:"notes,omitempty"`
}

// Validate checks the toll fields
func (r *TollRequest) Validate() error {
	if strings.TrimSpace(r.Location) == "" {
		return NewValidationError("location", "location is required")
	}
	if r.Amount == nil || *r.Amount < 0 {
		return NewValidationError("amount", "amount must be zero or greater")
	}
	if r.PaidAt.IsZero() {
		return NewValidationError("paid_at", "payment time is required")
	}
	return nil
}

// TollsRequest is the batch used by the workflow tolls step
type TollsRequest struct {
	Tolls []TollRequest `json:"tolls" binding:"required,min=1,dive"`
}
