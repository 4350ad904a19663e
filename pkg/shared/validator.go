package shared

import "github.com/go-playground/validator/v10"

// Validate is the shared struct validator used by controllers.
var Validate = validator.New()

// FieldErrors flattens validator failures into a field-to-message map for
// the 422 response envelope.
func FieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["_"] = err.Error()
		return fields
	}
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = "failed on the '" + fieldErr.Tag() + "' rule"
	}
	return fields
}
