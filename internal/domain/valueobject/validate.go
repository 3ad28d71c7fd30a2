// Package valueobject contains the immutable, self-validating types of the user domain.
package valueobject

import (
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New()

// checkVar runs a validator tag against a single value and converts the
// failure into a domain ValidationError.
func checkVar(field string, value interface{}, tag, message string) *domainerr.ValidationError {
	if err := validate.Var(value, tag); err != nil {
		return domainerr.NewValidationError(field, message, value)
	}
	return nil
}
