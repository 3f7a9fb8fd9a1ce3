package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates the national number is not 9 digits
	ErrInvalidLength = errors.New("phone number must have 9 digits after the +56 country code")

	// ErrInvalidPrefix indicates the number does not start with a Chilean mobile or area prefix
	ErrInvalidPrefix = errors.New("phone number must start with 9 (mobile) or a landline area code")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles Chilean phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Chilean phone number.
// Accepts: +56 9 1234 5678, 56912345678, 912345678, (2) 2123 4567
// Returns the 9-digit national number and an error if invalid
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 9 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize removes separators and the 56 country code
func (v *PhoneValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")
	phone = replacer.Replace(phone)

	if strings.HasPrefix(phone, "56") && len(phone) == 11 {
		phone = phone[2:]
	}

	return phone
}

// IsValidPrefix checks the first digit: 9 for mobiles, 2-7 for landline area codes
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if phone == "" {
		return false
	}
	return (phone[0] >= '2' && phone[0] <= '7') || phone[0] == '9'
}

// IsMobile reports whether a valid number is a mobile number
func (v *PhoneValidator) IsMobile(phone string) bool {
	sanitized, err := v.Validate(phone)
	return err == nil && sanitized[0] == '9'
}

// Format formats a phone number as +56 9 1234 5678
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("+56 %s %s %s",
		sanitized[0:1],
		sanitized[1:5],
		sanitized[5:9],
	), nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
