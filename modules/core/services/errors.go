package services

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opswell/adminkit/modules/core/infrastructure/persistence"
	"github.com/opswell/adminkit/pkg/serrors"
)

var (
	ErrRoleNotFound        = serrors.NewError("ROLE_NOT_FOUND", "role not found", "Roles.Errors.NotFound")
	ErrUserNotFound        = serrors.NewError("USER_NOT_FOUND", "user not found", "Users.Errors.NotFound")
	ErrTenantNotFound      = serrors.NewError("TENANT_NOT_FOUND", "tenant not found", "Tenants.Errors.NotFound")
	ErrPermissionNotFound  = serrors.NewError("PERMISSION_NOT_FOUND", "permission not found", "Permissions.Errors.NotFound")
	ErrAlreadyAssigned     = serrors.NewError("ALREADY_ASSIGNED", "role already assigned in this scope", "Roles.Errors.AlreadyAssigned")
	ErrNotAssigned         = serrors.NewError("NOT_ASSIGNED", "role is not assigned in this scope", "Roles.Errors.NotAssigned")
	ErrSystemRoleImmutable = serrors.NewError("SYSTEM_ROLE_IMMUTABLE", "system roles cannot be modified or deleted", "Roles.Errors.SystemImmutable")
	ErrStorageUnavailable  = serrors.NewError("STORAGE_UNAVAILABLE", "storage temporarily unavailable", "Errors.StorageUnavailable")
)

// mapStorageError translates persistence sentinels and transient pg failures
// into the coded taxonomy the presentation layer renders. Unknown errors pass
// through untouched.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrRoleNotFound):
		return ErrRoleNotFound
	case errors.Is(err, persistence.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, persistence.ErrTenantNotFound):
		return ErrTenantNotFound
	case errors.Is(err, persistence.ErrAssignmentExists):
		recordAssignmentConflict()
		return ErrAlreadyAssigned
	case errors.Is(err, persistence.ErrAssignmentNotFound):
		return ErrNotAssigned
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 covers connection exceptions; callers may retry after
		// re-checking state.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return ErrStorageUnavailable
		}
	}
	return err
}
