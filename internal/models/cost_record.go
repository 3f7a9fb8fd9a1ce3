package models

import (
	"math"
	"time"
)

// CostStep is the persisted position of a cost record in the data-entry workflow
type CostStep string

const (
	StepInitialOdometer CostStep = "initial_odometer_pending"
	StepMaintenance     CostStep = "maintenance_pending"
	StepTolls           CostStep = "tolls_pending"
	StepFuelStops       CostStep = "fuel_stops_pending"
	StepFinalOdometer   CostStep = "final_odometer_pending"
	StepCompleted       CostStep = "completed"
)

var stepOrder = map[CostStep]int{
	StepInitialOdometer: 1,
	StepMaintenance:     2,
	StepTolls:           3,
	StepFuelStops:       4,
	StepFinalOdometer:   5,
	StepCompleted:       6,
}

// Order returns the position of the step in the workflow, 0 when unknown
func (s CostStep) Order() int {
	return stepOrder[s]
}

// Next returns the step that follows s
func (s CostStep) Next() CostStep {
	switch s {
	case StepInitialOdometer:
		return StepMaintenance
	case StepMaintenance:
		return StepTolls
	case StepTolls:
		return StepFuelStops
	case StepFuelStops:
		return StepFinalOdometer
	default:
		return StepCompleted
	}
}

// CostRecord is the per-trip cost ledger
type CostRecord struct {
	ID              string     `json:"id" db:"id"`
	TripID          string     `json:"trip_id" db:"trip_id"`
	CurrentStep     CostStep   `json:"current_step" db:"current_step"`
	InitialOdometer *int64     `json:"initial_odometer,omitempty" db:"initial_odometer"`
	FinalOdometer   *int64     `json:"final_odometer,omitempty" db:"final_odometer"`
	FuelCost        int64      `json:"fuel_cost" db:"fuel_cost"`
	MaintenanceCost int64      `json:"maintenance_cost" db:"maintenance_cost"`
	TollsCost       int64      `json:"tolls_cost" db:"tolls_cost"`
	OtherCosts      int64      `json:"other_costs" db:"other_costs"`
	TotalCost       int64      `json:"total_cost" db:"total_cost"`
	Notes           string     `json:"notes" db:"notes"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsCompleted reports whether the workflow reached its final step
func (c *CostRecord) IsCompleted() bool {
	return c.CurrentStep == StepCompleted
}

// RecomputeTotal derives TotalCost from the four components.
func (c *CostRecord) RecomputeTotal() error {
	total, err := SumInt64(c.FuelCost, c.MaintenanceCost, c.TollsCost, c.OtherCosts)
	if err != nil {
		return err
	}
	if total < 0 {
		return NewValidationError("total_cost", "total cost cannot be negative")
	}
	c.TotalCost = total
	return nil
}

// SumInt64 adds values and fails with ErrArithmeticOverflow instead of wrapping
func SumInt64(values ...int64) (int64, error) {
	var sum int64
	for _, v := range values {
		if (v > 0 && sum > math.MaxInt64-v) || (v < 0 && sum < math.MinInt64-v) {
			return 0, ErrArithmeticOverflow
		}
		sum += v
	}
	return sum, nil
}

// CostRecordFilter narrows cost record listings
type CostRecordFilter struct {
	Step   CostStep
	BusID  string
	TripID string
	Limit  int
	Offset int
}

// OdometerRequest sets the initial or final odometer reading
type OdometerRequest struct {
	Value *int64 `json:"value" binding:"required,min=0"`
}

// OtherCostsRequest sets the manually entered other costs
type OtherCostsRequest struct {
	Amount        *int64 `json:"amount" binding:"required,min=0"`
	Justification string `json:"justification"`
}

// SetMaintenanceRequest replaces the maintenance linked to a cost record
type SetMaintenanceRequest struct {
	MaintenanceIDs []string `json:"maintenance_ids" binding:"dive,uuid"`
}

// CostSummaryRow aggregates cost records per bus for a period
type CostSummaryRow struct {
	BusID           string `json:"bus_id" db:"bus_id"`
	LicensePlate    string `json:"license_plate" db:"license_plate"`
	Trips           int    `json:"trips" db:"trips"`
	FuelCost        int64  `json:"fuel_cost" db:"fuel_cost"`
	MaintenanceCost int64  `json:"maintenance_cost" db:"maintenance_cost"`
	TollsCost       int64  `json:"tolls_cost" db:"tolls_cost"`
	OtherCosts      int64  `json:"other_costs" db:"other_costs"`
	TotalCost       int64  `json:"total_cost" db:"total_cost"`
	Kilometers      int64  `json:"kilometers" db:"kilometers"`
}
