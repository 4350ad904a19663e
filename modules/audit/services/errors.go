package services

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opswell/adminkit/modules/audit/infrastructure/persistence"
	"github.com/opswell/adminkit/pkg/serrors"
)

var (
	ErrInvalidRetention   = serrors.NewError("INVALID_RETENTION", "retention period is below the minimum floor", "Audit.Errors.InvalidRetention")
	ErrSessionNotFound    = serrors.NewError("SESSION_NOT_FOUND", "session not found", "Sessions.Errors.NotFound")
	ErrSessionNotActive   = serrors.NewError("SESSION_NOT_ACTIVE", "session is not active", "Sessions.Errors.NotActive")
	ErrStorageUnavailable = serrors.NewError("STORAGE_UNAVAILABLE", "storage temporarily unavailable", "Errors.StorageUnavailable")
)

// mapStorageError surfaces transient connection failures as a retryable
// coded error. Reads can simply be retried; writers must re-query state
// first because the operation may or may not have committed.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return ErrStorageUnavailable
		}
	}
	return err
}
