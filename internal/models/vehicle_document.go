package models

import (
	"strings"
	"time"
)

// DocumentType classifies a vehicle document
type DocumentType string

const (
	DocumentMandatoryInsurance  DocumentType = "mandatory_insurance"
	DocumentTechnicalInspection DocumentType = "technical_inspection"
	DocumentCirculationPermit   DocumentType = "circulation_permit"
	DocumentInsurance           DocumentType = "insurance"
	DocumentOther               DocumentType = "other"
)

// DocumentStatus is derived from the expiry date
type DocumentStatus string

const (
	DocumentValid        DocumentStatus = "valid"
	DocumentExpiringSoon DocumentStatus = "expiring_soon"
	DocumentExpired      DocumentStatus = "expired"
)

// ExpiryWarningDays is how close to expiry a document counts as expiring soon
const ExpiryWarningDays = 30

// VehicleDocument is a legal document attached to a bus
type VehicleDocument struct {
	ID        string         `json:"id" db:"id"`
	BusID     string         `json:"bus_id" db:"bus_id"`
	Type      DocumentType   `json:"type" db:"type"`
	Number    string         `json:"number" db:"number"`
	IssuedOn  time.Time      `json:"issued_on" db:"issued_on"`
	ExpiresOn time.Time      `json:"expires_on" db:"expires_on"`
	FileURL   *string        `json:"file_url,omitempty" db:"file_url"`
	Notes     *string        `json:"notes,omitempty" db:"notes"`
	Status    DocumentStatus `json:"status" db:"-"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// StatusAt derives the document status on the given day
func (d *VehicleDocument) StatusAt(now time.Time) DocumentStatus {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	expires := time.Date(d.ExpiresOn.Year(), d.ExpiresOn.Month(), d.ExpiresOn.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case expires.Before(today):
		return DocumentExpired
	case !expires.After(today.AddDate(0, 0, ExpiryWarningDays)):
		return DocumentExpiringSoon
	default:
		return DocumentValid
	}
}

// VehicleDocumentRequest registers a document for a bus
type VehicleDocumentRequest struct {
	Type      string  `json:"type" binding:"required"`
	Number    string  `json:"number" binding:"required"`
	IssuedOn  string  `json:"issued_on" binding:"required"`  // Format: YYYY-MM-DD
	ExpiresOn string  `json:"expires_on" binding:"required"` // Format: YYYY-MM-DD
	FileURL   *string `json:"file_url,omitempty" binding:"omitempty,url"`
	Notes     *string `json:"notes,omitempty"`
}

// Validate parses the request into a document for busID
func (r *VehicleDocumentRequest) Validate(busID string) (*VehicleDocument, error) {
	t := DocumentType(r.Type)
	switch t {
	case DocumentMandatoryInsurance, DocumentTechnicalInspection, DocumentCirculationPermit, DocumentInsurance, DocumentOther:
	default:
		return nil, NewValidationError("type", "unknown document type")
	}
	issued, err := time.Parse(DateLayout, r.IssuedOn)
	if err != nil {
		return nil, NewValidationError("issued_on", "invalid date format, expected YYYY-MM-DD")
	}
	expires, err := time.Parse(DateLayout, r.ExpiresOn)
	if err != nil {
		return nil, NewValidationError("expires_on", "invalid date format, expected YYYY-MM-DD")
	}
	if !expires.After(issued) {
		return nil, NewValidationError("expires_on", "expiry must be after issue date")
	}
	return &VehicleDocument{
		BusID:     busID,
		Type:      t,
		Number:    strings.TrimSpace(r.Number),
		IssuedOn:  issued,
		ExpiresOn: expires,
		FileURL:   r.FileURL,
		Notes:     r.Notes,
	}, nil
}
