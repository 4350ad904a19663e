package roleassignment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoleAssignment binds a user to a role within a scope. TenantID is nil for
// the global scope; the global binding and every tenant binding of the same
// (user, role) pair are independent rows. The (user, role, scope) triple is
// unique, enforced by the storage layer so concurrent duplicate inserts
// cannot both succeed.
type RoleAssignment struct {
	ID        uint
	UserID    uint
	RoleID    uint
	TenantID  *uuid.UUID
	CreatedAt time.Time
}

// Scope returns the assignment's scope as a comparable string, with the
// empty string denoting the global scope.
func (a *RoleAssignment) Scope() string {
	if a.TenantID == nil {
		return ""
	}
	return a.TenantID.String()
}

type FindParams struct {
	UserID *uint
	RoleID *uint
	// TenantID filters by scope when ScopeSet is true: nil means the global
	// scope, non-nil a specific tenant. When ScopeSet is false all scopes
	// match.
	TenantID *uuid.UUID
	ScopeSet bool
	Limit    int
	Offset   int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*RoleAssignment, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// Create inserts the binding, relying on the storage unique constraint
	// for duplicate detection.
	Create(ctx context.Context, a *RoleAssignment) (*RoleAssignment, error)
	// Delete removes the exact (user, role, scope) binding and reports
	// whether a row existed.
	Delete(ctx context.Context, userID, roleID uint, tenantID *uuid.UUID) (bool, error)
	DeleteForUser(ctx context.Context, userID uint) (int64, error)
	DeleteForRole(ctx context.Context, roleID uint) (int64, error)
}
