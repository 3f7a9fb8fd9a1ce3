package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
)

// RegisterBindingTags adds the `cl_phone` and `rut` tags to gin's request validator
func RegisterBindingTags() error {
	engine, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return RegisterTags(engine)
}

// RegisterTags adds the `cl_phone` and `rut` tags to a validator instance
func RegisterTags(v *playground.Validate) error {
	phones := NewPhoneValidator()
	ruts := NewRUTValidator()

	if err := v.RegisterValidation("cl_phone", func(fl playground.FieldLevel) bool {
		return phones.IsValid(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register cl_phone: %w", err)
	}

	if err := v.RegisterValidation("rut", func(fl playground.FieldLevel) bool {
		return ruts.IsValid(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register rut: %w", err)
	}

	return nil
}
