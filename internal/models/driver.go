package models

import (
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/DoSvEinTe/proyecto-flota/pkg/validator"
)

// Driver represents a person licensed to drive fleet buses
type Driver struct {
	ID                string         `json:"id" db:"id"`
	FirstName         string         `json:"first_name" db:"first_name"`
	LastName          string         `json:"last_name" db:"last_name"`
	NationalID        string         `json:"national_id" db:"national_id"`
	Email             *string        `json:"email,omitempty" db:"email"`
	Phone             string         `json:"phone" db:"phone"`
	LicenseNumber     string         `json:"license_number" db:"license_number"`
	LicenseCategories pq.StringArray `json:"license_categories" db:"license_categories"`
	HiredOn           time.Time      `json:"hired_on" db:"hired_on"`
	Active            bool           `json:"active" db:"active"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last"
func (d *Driver) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// DriverRequest represents the request to create or replace a driver
type DriverRequest struct {
	FirstName         string   `json:"first_name" binding:"required"`
	LastName          string   `json:"last_name" binding:"required"`
	NationalID        string   `json:"national_id" binding:"required,rut"`
	Email             *string  `json:"email,omitempty" binding:"omitempty,email"`
	Phone             string   `json:"phone" binding:"required,cl_phone"`
	LicenseNumber     string   `json:"license_number" binding:"required"`
	LicenseCategories []string `json:"license_categories" binding:"required,min=1"`
	HiredOn           string   `json:"hired_on" binding:"required"` // Format: YYYY-MM-DD
	Active            *bool    `json:"active,omitempty"`
}

var validLicenseCategories = map[string]bool{
	"A1": true, "A2": true, "A3": true, "A4": true, "A5": true,
	"B": true, "C": true, "D": true, "E": true, "F": true,
}

// Validate checks the request and returns the parsed driver
func (r *DriverRequest) Validate(now time.Time) (*Driver, error) {
	nationalID, err := validator.NewRUTValidator().Validate(r.NationalID)
	if err != nil {
		return nil, NewValidationError("national_id", err.Error())
	}
	phone, err := validator.NewPhoneValidator().Format(r.Phone)
	if err != nil {
		return nil, NewValidationError("phone", err.Error())
	}

	hired, err := time.Parse(DateLayout, r.HiredOn)
	if err != nil {
		return nil, NewValidationError("hired_on", "invalid date format, expected YYYY-MM-DD")
	}
	if hired.After(now) {
		return nil, NewValidationError("hired_on", "hire date cannot be in the future")
	}

	categories := make(pq.StringArray, 0, len(r.LicenseCategories))
	for _, c := range r.LicenseCategories {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !validLicenseCategories[c] {
			return nil, NewValidationError("license_categories", "unknown license category "+c)
		}
		categories = append(categories, c)
	}

	var email *string
	if r.Email != nil && strings.TrimSpace(*r.Email) != "" {
		e := strings.ToLower(strings.TrimSpace(*r.Email))
		email = &e
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return &Driver{
		FirstName:         strings.TrimSpace(r.FirstName),
		LastName:          strings.TrimSpace(r.LastName),
		NationalID:        nationalID,
		Email:             email,
		Phone:             phone,
		LicenseNumber:     strings.TrimSpace(r.LicenseNumber),
		LicenseCategories: categories,
		HiredOn:           hired,
		Active:            active,
	}, nil
}
