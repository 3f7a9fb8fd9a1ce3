package models

import (
	"strings"
	"time"
)

// Place is a named location used as trip origin or destination
type Place struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city" db:"city"`
	Province  string    `json:"province" db:"province"`
	Country   string    `json:"country" db:"country"`
	Latitude  *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64  `json:"longitude,omitempty" db:"longitude"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set and in range
func (p *Place) HasCoordinates() bool {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return false
	}
	return *p.Latitude >= -90 && *p.Latitude <= 90 && *p.Longitude >= -180 && *p.Longitude <= 180
}

// Label returns "Name, City" for documents and logs
func (p *Place) Label() string {
	if p == nil {
		return ""
	}
	if p.City == "" || strings.EqualFold(p.City, p.Name) {
		return p.Name
	}
	return p.Name + ", " + p.City
}

// PlaceRequest is used for both creating and replacing a place
type PlaceRequest struct {
	Name      string   `json:"name" binding:"required"`
	City      string   `json:"city" binding:"required"`
	Province  string   `json:"province"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Validate validates the place request
func (r *PlaceRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return NewValidationError("latitude", "latitude and longitude must be provided together")
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		return NewValidationError("latitude", "latitude must be between -90 and 90")
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		return NewValidationError("longitude", "longitude must be between -180 and 180")
	}
	return nil
}

// ToPlace builds a Place from the request
func (r *PlaceRequest) ToPlace() *Place {
	country := r.Country
	if country == "" {
		country = "Chile"
	}
	return &Place{
		Name:      strings.TrimSpace(r.Name),
		City:      strings.TrimSpace(r.City),
		Province:  strings.TrimSpace(r.Province),
		Country:   country,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}
