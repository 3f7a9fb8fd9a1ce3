package models

import "github.com/shopspring/decimal"

// CostReport is the fully resolved, read-only view of a cost record
type CostReport struct {
	CostRecord  *CostRecord     `json:"cost_record"`
	Trip        *Trip           `json:"trip"`
	LinkedTrip  *Trip           `json:"linked_trip,omitempty"`
	Bus         *Bus            `json:"bus"`
	Driver      *Driver         `json:"driver"`
	FuelStops   []FuelStop      `json:"fuel_stops"`
	Tolls       []Toll          `json:"tolls"`
	Maintenance []Maintenance   `json:"maintenance"`
	Passengers  []TripPassenger `json:"passengers"`

	TotalLiters decimal.Decimal `json:"total_liters"`
	TravelledKm *int64          `json:"travelled_km,omitempty"`
	FuelStopKm  int64           `json:"fuel_stop_km"`
	CostPerKm   *int64          `json:"cost_per_km,omitempty"`
}

// CostSummary is the period report over many cost records
type CostSummary struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Rows   []CostSummaryRow `json:"rows"`
	Totals CostSummaryRow   `json:"totals"`
}
