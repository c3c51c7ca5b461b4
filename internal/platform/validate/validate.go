package validate

import (
	"github.com/go-playground/validator/v10"
)

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// Validator adapts go-playground/validator to echo's Validator interface.
// Handlers translate the returned error to a 400 themselves, matching the
// rest of the handler error style.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{validate: defaultValidator}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Struct validates a value against its struct tags using the shared
// validator instance. Non-handler callers use this directly.
func Struct(i interface{}) error {
	return defaultValidator.Struct(i)
}
