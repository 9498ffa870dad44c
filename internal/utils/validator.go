// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teambind/support-server/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("reference_type", validateReferenceType)
	validate.RegisterValidation("report_status", validateReportStatus)

	// Report fields by their JSON names; untagged fields keep the Go name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateReferenceType(fl validator.FieldLevel) bool {
	_, err := models.ParseReferenceType(fl.Field().String())
	return err == nil
}

func validateReportStatus(fl validator.FieldLevel) bool {
	_, err := models.ParseReportStatus(fl.Field().String())
	return err == nil
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// GetValidationErrors flattens validator errors, also when wrapped.
func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "reference_type":
		return e.Field() + " must be one of PROFILE, ARTICLE, BUSINESS"
	case "report_status":
		return e.Field() + " must be one of PENDING, REVIEWING, APPROVED, REJECTED, WITHDRAWN"
	default:
		return e.Field() + " is invalid"
	}
}
