// backend/shared/go-dtos/error_dtos.go
package dtos

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationErrorDetail is a shared DTO for structured validation error responses.
type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FromValidationErrors converts validator errors into a user-friendly format.
func FromValidationErrors(errs validator.ValidationErrors) []ValidationErrorDetail {
	details := make([]ValidationErrorDetail, 0, len(errs))
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("Field '%s' is required", err.Field())
		case "email":
			message = fmt.Sprintf("Field '%s' must be a valid email address", err.Field())
		case "e164":
			message = fmt.Sprintf("Field '%s' must be an E.164 phone number", err.Field())
		case "min":
			message = fmt.Sprintf("Field '%s' must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("Field '%s' must not exceed %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("Field '%s' must be one of [%s]", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("Field '%s' must be after '%s'", err.Field(), err.Param())
		case "iso3166_1_alpha2":
			message = fmt.Sprintf("Field '%s' must be a two-letter country code", err.Field())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", err.Field(), err.Tag())
		}
		details = append(details, ValidationErrorDetail{
			Field:   err.Field(),
			Message: message,
			Code:    "validation_" + err.Tag(),
		})
	}
	return details
}
