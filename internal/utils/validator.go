// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Korean mobile number: 01X prefix, 3-4 digit middle, 4 digit tail.
// Hyphens are stripped before matching, so "010-1234-5678" and
// "01012345678" are both accepted.
var krMobilePattern = regexp.MustCompile(`^01[0-9][0-9]{3,4}[0-9]{4}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("kr_mobile", validateKRMobile)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateKRMobile(fl validator.FieldLevel) bool {
	return IsKRMobile(fl.Field().String())
}

func IsKRMobile(phone string) bool {
	return krMobilePattern.MatchString(strings.ReplaceAll(phone, "-", ""))
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
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
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "kr_mobile":
		return "Enter a valid mobile number (01X-XXXX-XXXX)"
	case "url":
		return "Invalid URL format"
	default:
		return e.Field() + " is invalid"
	}
}
