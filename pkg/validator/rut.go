package validator

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrEmptyRUT indicates the RUT is empty
	ErrEmptyRUT = errors.New("RUT cannot be empty")

	// ErrInvalidRUTFormat indicates the RUT is not digits followed by a check digit
	ErrInvalidRUTFormat = errors.New("RUT must look like 12.345.678-5")

	// ErrInvalidCheckDigit indicates the check digit does not match the body
	ErrInvalidCheckDigit = errors.New("RUT check digit is not valid")
)

// RUTValidator validates Chilean national identification numbers (RUT/RUN)
type RUTValidator struct{}

// NewRUTValidator creates a new RUT validator instance
func NewRUTValidator() *RUTValidator {
	return &RUTValidator{}
}

// Validate checks the modulo 11 check digit and returns the RUT normalized as 12345678-5
func (v *RUTValidator) Validate(rut string) (string, error) {
	clean := strings.ToUpper(strings.NewReplacer(".", "", "-", "", " ", "").Replace(rut))
	if clean == "" {
		return "", ErrEmptyRUT
	}
	if len(clean) < 2 || len(clean) > 9 {
		return "", ErrInvalidRUTFormat
	}

	body, dv := clean[:len(clean)-1], clean[len(clean)-1:]
	if _, err := strconv.Atoi(body); err != nil {
		return "", ErrInvalidRUTFormat
	}
	if CheckDigit(body) != dv {
		return "", ErrInvalidCheckDigit
	}

	return strings.TrimLeft(body, "0") + "-" + dv, nil
}

// IsValid is a convenience method that returns true if rut is valid
func (v *RUTValidator) IsValid(rut string) bool {
	_, err := v.Validate(rut)
	return err == nil
}

// CheckDigit computes the modulo 11 check digit ("0"-"9" or "K") of a RUT body
func CheckDigit(body string) string {
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(r)
	}
}
