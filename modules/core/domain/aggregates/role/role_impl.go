package role

import (
	"sort"
	"strings"
	"time"

	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
)

type Option func(*role)

func WithID(id uint) Option {
	return func(r *role) {
		r.id = id
	}
}

func WithSlug(slug string) Option {
	return func(r *role) {
		r.slug = slug
	}
}

func WithDescription(description string) Option {
	return func(r *role) {
		r.description = description
	}
}

func WithSystem(isSystem bool) Option {
	return func(r *role) {
		r.isSystem = isSystem
	}
}

func WithPermissions(permissions []*permission.Permission) Option {
	return func(r *role) {
		r.permissions = permissions
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(r *role) {
		r.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(r *role) {
		r.updatedAt = updatedAt
	}
}

func New(name string, opts ...Option) Role {
	r := &role{
		name:      name,
		slug:      Slugify(name),
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Slugify derives a URL-safe slug from a role name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	var b strings.Builder
	for _, c := range slug {
		if c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

type role struct {
	id          uint
	name        string
	slug        string
	description string
	isSystem    bool
	permissions []*permission.Permission
	createdAt   time.Time
	updatedAt   time.Time
}

func (r *role) ID() uint {
	return r.id
}

func (r *role) Name() string {
	return r.name
}

func (r *role) Slug() string {
	return r.slug
}

func (r *role) Description() string {
	return r.description
}

func (r *role) IsSystem() bool {
	return r.isSystem
}

func (r *role) Permissions() []*permission.Permission {
	return r.permissions
}

func (r *role) CreatedAt() time.Time {
	return r.createdAt
}

func (r *role) UpdatedAt() time.Time {
	return r.updatedAt
}

func (r *role) CanUpdate() bool {
	return !r.isSystem
}

func (r *role) CanDelete() bool {
	return !r.isSystem
}

func (r *role) SetName(name string) Role {
	out := *r
	out.name = name
	out.updatedAt = time.Now()
	return &out
}

func (r *role) SetSlug(slug string) Role {
	out := *r
	out.slug = slug
	out.updatedAt = time.Now()
	return &out
}

func (r *role) SetDescription(description string) Role {
	out := *r
	out.description = description
	out.updatedAt = time.Now()
	return &out
}

func (r *role) SetPermissions(permissions []*permission.Permission) Role {
	out := *r
	out.permissions = permissions
	out.updatedAt = time.Now()
	return &out
}

func (r *role) PermissionNames() []string {
	names := make([]string, 0, len(r.permissions))
	for _, p := range r.permissions {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
