package persistence

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/opswell/adminkit/modules/core/domain/aggregates/role"
	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
	"github.com/opswell/adminkit/modules/core/domain/entities/roleassignment"
	"github.com/opswell/adminkit/modules/core/domain/entities/tenant"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence/models"
)

func toDomainRole(dbRow *models.Role, permissions []*permission.Permission) role.Role {
	return role.New(
		dbRow.Name,
		role.WithID(dbRow.ID),
		role.WithSlug(dbRow.Slug),
		role.WithDescription(dbRow.Description.String),
		role.WithSystem(dbRow.IsSystem),
		role.WithPermissions(permissions),
		role.WithCreatedAt(dbRow.CreatedAt),
		role.WithUpdatedAt(dbRow.UpdatedAt),
	)
}

func toDBRole(entity role.Role) *models.Role {
	return &models.Role{
		ID:          entity.ID(),
		Name:        entity.Name(),
		Slug:        entity.Slug(),
		Description: sql.NullString{String: entity.Description(), Valid: entity.Description() != ""},
		IsSystem:    entity.IsSystem(),
		CreatedAt:   entity.CreatedAt(),
		UpdatedAt:   entity.UpdatedAt(),
	}
}

func toDomainPermission(dbRow *models.Permission) *permission.Permission {
	return &permission.Permission{
		ID:   dbRow.ID,
		Name: dbRow.Name,
		Slug: dbRow.Slug,
	}
}

func toDomainTenant(dbRow *models.Tenant) (*tenant.Tenant, error) {
	id, err := uuid.Parse(dbRow.ID)
	if err != nil {
		return nil, err
	}
	var maxUsers *int
	if dbRow.MaxUsers.Valid {
		v := int(dbRow.MaxUsers.Int32)
		maxUsers = &v
	}
	return tenant.New(
		dbRow.Name,
		tenant.WithID(id),
		tenant.WithDomain(dbRow.Domain),
		tenant.WithIsActive(dbRow.IsActive),
		tenant.WithMaxUsers(maxUsers),
		tenant.WithCreatedAt(dbRow.CreatedAt),
		tenant.WithUpdatedAt(dbRow.UpdatedAt),
	), nil
}

func toDomainUser(dbRow *models.User) *user.User {
	return &user.User{
		ID:        dbRow.ID,
		FirstName: dbRow.FirstName,
		LastName:  dbRow.LastName,
		Email:     dbRow.Email,
		IsAdmin:   dbRow.IsAdmin,
	}
}

func toDomainRoleAssignment(dbRow *models.RoleAssignment) (*roleassignment.RoleAssignment, error) {
	var tenantID *uuid.UUID
	if dbRow.TenantID.Valid {
		parsed, err := uuid.Parse(dbRow.TenantID.String)
		if err != nil {
			return nil, err
		}
		tenantID = &parsed
	}
	return &roleassignment.RoleAssignment{
		ID:        dbRow.ID,
		UserID:    dbRow.UserID,
		RoleID:    dbRow.RoleID,
		TenantID:  tenantID,
		CreatedAt: dbRow.CreatedAt,
	}, nil
}
