package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FuelStop is one refueling event inside a cost record
type FuelStop struct {
	ID                    string          `json:"id" db:"id"`
	CostRecordID          string          `json:"cost_record_id" db:"cost_record_id"`
	SequenceNumber        int             `json:"sequence_number" db:"sequence_number"`
	OdometerReading       int64           `json:"odometer_reading" db:"odometer_reading"`
	Liters                decimal.Decimal `json:"liters" db:"liters"`
	PricePerLiter         int64           `json:"price_per_liter" db:"price_per_liter"`
	Cost                  int64           `json:"cost" db:"cost"`
	DistanceSincePrevious int64           `json:"distance_since_previous" db:"distance_since_previous"`
	Location              string          `json:"location" db:"location"`
	StoppedAt             *time.Time      `json:"stopped_at,omitempty" db:"stopped_at"`
	ReceiptURL            *string         `json:"receipt_url,omitempty" db:"receipt_url"`
	Notes                 *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
}

// FuelStopRequest describes a fuel stop to add to a cost record
type FuelStopRequest struct {
	SequenceNumber  int             `json:"sequence_number" binding:"required,min=1"`
	OdometerReading *int64          `json:"odometer_reading" binding:"required,min=0"`
	Liters          decimal.Decimal `json:"liters"`
	PricePerLiter   *int64          `json:"price_per_liter" binding:"required,min=0"`
	Location        string          `json:"location" binding:"required"`
	StoppedAt       *time.Time      `json:"stopped_at,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
}

// Validate checks the intrinsic fields of the stop
func (r *FuelStopRequest) Validate() error {
	if r.SequenceNumber < 1 {
		return NewValidationError("sequence_number", "sequence number must start at 1")
	}
	if r.OdometerReading == nil || *r.OdometerReading < 0 {
		return NewValidationError("odometer_reading", "odometer reading is required")
	}
	if !r.Liters.IsPositive() {
		return NewValidationError("liters", "liters must be greater than zero")
	}
	if !r.Liters.Equal(r.Liters.Truncate(2)) {
		return NewValidationError("liters", "liters allows at most 2 decimals")
	}
	if r.PricePerLiter == nil || *r.PricePerLiter < 0 {
		return NewValidationError("price_per_liter", "price per liter is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return NewValidationError("location", "location is required")
	}
	return nil
}

// FuelCost returns liters × price rounded half away from zero to whole pesos
func FuelCost(liters decimal.Decimal, pricePerLiter int64) (int64, error) {
	cost := liters.Mul(decimal.NewFromInt(pricePerLiter)).Round(0)
	if !cost.BigInt().IsInt64() {
		return 0, ErrArithmeticOverflow
	}
	return cost.IntPart(), nil
}

// FuelStopsRequest is the batch used by the workflow fuel step
type FuelStopsRequest struct {
	Stops []FuelStopRequest `json:"stops" binding:"required,min=1,dive"`
}
