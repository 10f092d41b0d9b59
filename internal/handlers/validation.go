package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every handler; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()

// ValidateRequest checks a decoded request DTO against its validate tags
// and returns the first violation as a client-facing error.
func ValidateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return fmt.Errorf("validation failed: %s: %s", ve[0].Field(), fieldMessage(ve[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
