package serrors

import "fmt"

// BaseError is a coded error shared across module boundaries. Code is stable
// and machine-readable; Message is a developer-facing default; LocaleKey is
// the translation key presentation layers may resolve instead of Message.
type BaseError struct {
	Code      string
	Message   string
	LocaleKey string
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

// ValidationError carries a field-level failure.
type ValidationError struct {
	BaseError
	Field string
}

type ValidationErrors map[string]error

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{
		BaseError: BaseError{
			Code:    code,
			Message: message,
		},
		Field: field,
	}
}

func NewFieldRequiredError(field, localeKey string) *ValidationError {
	return &ValidationError{
		BaseError: BaseError{
			Code:      "FIELD_REQUIRED",
			Message:   fmt.Sprintf("%s is required", field),
			LocaleKey: localeKey,
		},
		Field: field,
	}
}
