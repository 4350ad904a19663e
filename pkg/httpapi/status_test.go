package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/pkg/serrors"
)

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code   string
		status int
	}{
		{"ROLE_NOT_FOUND", http.StatusNotFound},
		{"NOT_ASSIGNED", http.StatusNotFound},
		{"ALREADY_ASSIGNED", http.StatusBadRequest},
		{"SESSION_NOT_ACTIVE", http.StatusConflict},
		{"SYSTEM_ROLE_IMMUTABLE", http.StatusForbidden},
		{"INVALID_RETENTION", http.StatusUnprocessableEntity},
		{"STORAGE_UNAVAILABLE", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := serrors.NewError(tc.code, "boom", "")
			require.NoError(t, WriteDomainError(rec, err))
			require.Equal(t, tc.status, rec.Code)

			var envelope ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			require.Equal(t, tc.code, envelope.Code)
		})
	}
}

func TestWriteDomainErrorUnknownCodeIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteDomainError(rec, serrors.NewError("BRAND_NEW_CODE", "x", "")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteDomainErrorMasksUncodedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteDomainError(rec, errors.New("pq: connection reset")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "INTERNAL", envelope.Code)
	require.NotContains(t, envelope.Message, "connection reset")
}
