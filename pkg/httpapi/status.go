package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/opswell/adminkit/pkg/serrors"
)

// statusByCode maps stable error codes to response statuses. Codes absent
// from the map render as 500 so new domain errors fail loudly instead of
// leaking as false successes.
var statusByCode = map[string]int{
	"ROLE_NOT_FOUND":        http.StatusNotFound,
	"USER_NOT_FOUND":        http.StatusNotFound,
	"TENANT_NOT_FOUND":      http.StatusNotFound,
	"PERMISSION_NOT_FOUND":  http.StatusNotFound,
	"SESSION_NOT_FOUND":     http.StatusNotFound,
	"NOT_ASSIGNED":          http.StatusNotFound,
	"ALREADY_ASSIGNED":      http.StatusBadRequest,
	"SESSION_NOT_ACTIVE":    http.StatusConflict,
	"SYSTEM_ROLE_IMMUTABLE": http.StatusForbidden,
	"VALIDATION_FAILED":     http.StatusUnprocessableEntity,
	"FIELD_REQUIRED":        http.StatusUnprocessableEntity,
	"INVALID_RETENTION":     http.StatusUnprocessableEntity,
	"STORAGE_UNAVAILABLE":   http.StatusServiceUnavailable,
}

// WriteDomainError renders a coded service error with the right status.
// Uncoded errors are masked as a generic 500 so internals never leak.
func WriteDomainError(w http.ResponseWriter, err error) error {
	var base *serrors.BaseError
	if errors.As(err, &base) {
		status, ok := statusByCode[base.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		return WriteError(w, status, base.Code, base.Message, nil)
	}
	return WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
