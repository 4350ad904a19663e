package role

import (
	"context"
	"time"

	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
)

// Role is an aggregate of a named grant and its permission set. System roles
// are provisioned by migrations and refuse updates and deletion.
type Role interface {
	ID() uint
	Name() string
	Slug() string
	Description() string
	IsSystem() bool
	Permissions() []*permission.Permission
	CreatedAt() time.Time
	UpdatedAt() time.Time

	CanUpdate() bool
	CanDelete() bool

	SetName(name string) Role
	SetSlug(slug string) Role
	SetDescription(description string) Role
	SetPermissions(permissions []*permission.Permission) Role

	// PermissionNames returns the sorted permission names, used to compute
	// before/after diffs for auditing.
	PermissionNames() []string
}

type FindParams struct {
	Query  string
	Limit  int
	Offset int
	SortBy []string
}

type Repository interface {
	GetAll(ctx context.Context) ([]Role, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Role, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	GetByID(ctx context.Context, id uint) (Role, error)
	GetBySlug(ctx context.Context, slug string) (Role, error)
	Create(ctx context.Context, data Role) (Role, error)
	Update(ctx context.Context, data Role) (Role, error)
	Delete(ctx context.Context, id uint) error
}
