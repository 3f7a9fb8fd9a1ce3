package models

import (
	"strings"
	"time"

	"github.com/DoSvEinTe/proyecto-flota/pkg/validator"
)

// Passenger represents a person travelling on fleet trips
type Passenger struct {
	ID         string    `json:"id" db:"id"`
	FullName   string    `json:"full_name" db:"full_name"`
	NationalID *string   `json:"national_id,omitempty" db:"national_id"`
	Passport   *string   `json:"passport,omitempty" db:"passport"`
	Phone      *string   `json:"phone,omitempty" db:"phone"`
	Email      *string   `json:"email,omitempty" db:"email"`
	Notes      *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// PassengerRequest represents the request to create or replace a passenger
type PassengerRequest struct {
	FullName   string  `json:"full_name" binding:"required"`
	NationalID *string `json:"national_id,omitempty" binding:"omitempty,rut"`
	Passport   *string `json:"passport,omitempty"`
	Phone      *string `json:"phone,omitempty" binding:"omitempty,cl_phone"`
	Email      *string `json:"email,omitempty" binding:"omitempty,email"`
	Notes      *string `json:"notes,omitempty"`
}

// Validate checks that at least one identity document is present
func (r *PassengerRequest) Validate() (*Passenger, error) {
	if blank(r.NationalID) && blank(r.Passport) {
		return nil, NewValidationError("national_id", "either national_id or passport is required")
	}
	p := &Passenger{
		FullName: strings.TrimSpace(r.FullName),
		Phone:    r.Phone,
		Email:    r.Email,
		Notes:    r.Notes,
	}
	if !blank(r.NationalID) {
		rut, err := validator.NewRUTValidator().Validate(*r.NationalID)
		if err != nil {
			return nil, NewValidationError("national_id", err.Error())
		}
		p.NationalID = &rut
	}
	if !blank(r.Passport) {
		passport := strings.ToUpper(strings.TrimSpace(*r.Passport))
		p.Passport = &passport
	}
	return p, nil
}

// TripPassenger is a passenger booked on a trip
type TripPassenger struct {
	TripID      string    `json:"trip_id" db:"trip_id"`
	PassengerID string    `json:"passenger_id" db:"passenger_id"`
	Seat        *string   `json:"seat,omitempty" db:"seat"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	FullName    string    `json:"full_name" db:"full_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AddTripPassengerRequest books a passenger on a trip
type AddTripPassengerRequest struct {
	PassengerID string  `json:"passenger_id" binding:"required,uuid"`
	Seat        *string `json:"seat,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// UpdateTripPassengerRequest edits the seat and notes of a booking
type UpdateTripPassengerRequest struct {
	Seat  *string `json:"seat,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
