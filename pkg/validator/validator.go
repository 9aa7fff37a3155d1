// Package validator provides struct validation utilities with custom validators.
package validator

import (
	stderrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/openctemio/scanctl/pkg/domain/assetlist"
)

// Ambiguity policies accepted by the "ambiguity" tag.
const (
	AmbiguityWarn  = "warn"
	AmbiguityError = "error"
)

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("source_type", validateSourceType)
	_ = v.RegisterValidation("ambiguity", validateAmbiguity)
	_ = v.RegisterValidation("scan_target", validateScanTarget)
	_ = v.RegisterValidation("resource_name", validateResourceName)

	return &Validator{validate: v}
}

// Validate validates a struct and returns ValidationErrors if validation fails.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		result = append(result, ValidationError{
			Field:   fieldName(e),
			Message: formatErrorMessage(e),
		})
	}

	return result
}

// validateSourceType validates an inventory source type (DNS or IP).
func validateSourceType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, err := assetlist.ParseSourceType(value)
	return err == nil
}

func validateAmbiguity(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", AmbiguityWarn, AmbiguityError:
		return true
	default:
		return false
	}
}

// validateScanTarget validates one explicit scan target.
func validateScanTarget(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return ClassifyTarget(value) != TargetTypeUnknown
}

// validateResourceName rejects names the platform would silently mangle.
func validateResourceName(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if strings.TrimSpace(value) != value {
		return false
	}
	return !strings.ContainsFunc(value, unicode.IsControl)
}

// formatErrorMessage converts validation errors to human-readable messages.
func formatErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is empty", toSnakeCase(e.Param()))
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "source_type":
		return "must be one of: DNS, IP"
	case "ambiguity":
		return fmt.Sprintf("must be one of: %s, %s", AmbiguityWarn, AmbiguityError)
	case "scan_target":
		return fmt.Sprintf("%q is not a valid IP address, range, CIDR or hostname", e.Value())
	case "resource_name":
		return "must not have surrounding whitespace or control characters"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", e.Tag())
	}
}

// fieldName returns the snake_case field name, keeping a dive index if present.
func fieldName(e validator.FieldError) string {
	name := e.Field()
	idx := ""
	if i := strings.IndexByte(name, '['); i >= 0 {
		name, idx = name[:i], name[i:]
	}
	return toSnakeCase(name) + idx
}

// toSnakeCase converts PascalCase/camelCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
