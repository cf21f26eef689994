package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNodesPerBrowse caps NodesToBrowse in a single request.
	MaxNodesPerBrowse = 1000

	symbolicNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("nodeid", func(fl validator.FieldLevel) bool {
		_, err := ua.ParseNodeID(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("symbolicname", func(fl validator.FieldLevel) bool {
		return symbolicNamePattern.MatchString(fl.Field().String())
	})
}

// Struct validates v against its `validate` struct tags. Besides the
// built-in tags, "nodeid" requires a parseable node id string and
// "symbolicname" an identifier-like name.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateSymbolicName validates a descriptor or model element name.
func ValidateSymbolicName(name string) error {
	if name == "" {
		return errors.New("symbolic name cannot be empty")
	}
	if !symbolicNamePattern.MatchString(name) {
		return fmt.Errorf("symbolic name '%s' is invalid (must start with letter or underscore, followed by alphanumeric or underscore)", name)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "nodeid":
			return fmt.Errorf("%s: '%v' is not a valid node id", field, e.Value())
		case "symbolicname":
			return fmt.Errorf("%s: '%v' is not a valid symbolic name", field, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
