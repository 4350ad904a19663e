package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opswell/adminkit/modules/core/domain/aggregates/role"
	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/repo"
)

var ErrRoleNotFound = fmt.Errorf("role not found")

const (
	roleFindQuery = `SELECT id, name, slug, description, is_system, created_at, updated_at FROM roles`

	rolePermissionsQuery = `
		SELECT p.id, p.name, p.slug
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.slug`
)

type RoleRepository struct{}

func NewRoleRepository() role.Repository {
	return &RoleRepository{}
}

func (r *RoleRepository) GetAll(ctx context.Context) ([]role.Role, error) {
	return r.queryRoles(ctx, roleFindQuery+" ORDER BY name")
}

func (r *RoleRepository) GetPaginated(ctx context.Context, params *role.FindParams) ([]role.Role, error) {
	where, args := buildRoleFilters(params)
	query := repo.Join(roleFindQuery, where, "ORDER BY name")
	if params != nil {
		query = repo.Join(query, repo.FormatLimitOffset(params.Limit, params.Offset))
	}
	return r.queryRoles(ctx, query, args...)
}

func (r *RoleRepository) Count(ctx context.Context, params *role.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildRoleFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, repo.Join(`SELECT COUNT(*) FROM roles`, where), args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id uint) (role.Role, error) {
	roles, err := r.queryRoles(ctx, roleFindQuery+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, ErrRoleNotFound
	}
	return roles[0], nil
}

func (r *RoleRepository) GetBySlug(ctx context.Context, slug string) (role.Role, error) {
	roles, err := r.queryRoles(ctx, roleFindQuery+" WHERE slug = $1", slug)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, ErrRoleNotFound
	}
	return roles[0], nil
}

func (r *RoleRepository) Create(ctx context.Context, data role.Role) (role.Role, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	dbRow := toDBRole(data)
	var id uint
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO roles (name, slug, description, is_system, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		dbRow.Name,
		dbRow.Slug,
		dbRow.Description,
		dbRow.IsSystem,
		dbRow.CreatedAt,
		dbRow.UpdatedAt,
	).Scan(&id); err != nil {
		return nil, err
	}
	if err := r.syncPermissions(ctx, id, data.Permissions()); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *RoleRepository) Update(ctx context.Context, data role.Role) (role.Role, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	dbRow := toDBRole(data)
	tag, err := tx.Exec(
		ctx,
		`UPDATE roles SET name = $1, slug = $2, description = $3, updated_at = $4 WHERE id = $5`,
		dbRow.Name,
		dbRow.Slug,
		dbRow.Description,
		dbRow.UpdatedAt,
		dbRow.ID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRoleNotFound
	}
	if err := r.syncPermissions(ctx, dbRow.ID, data.Permissions()); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, dbRow.ID)
}

func (r *RoleRepository) Delete(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// syncPermissions replaces the role's permission set in full.
func (r *RoleRepository) syncPermissions(ctx context.Context, roleID uint, permissions []*permission.Permission) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	if len(permissions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range permissions {
		batch.Queue(`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, p.ID)
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range permissions {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RoleRepository) queryRoles(ctx context.Context, query string, args ...any) ([]role.Role, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dbRows []*models.Role
	for rows.Next() {
		var row models.Role
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Slug,
			&row.Description,
			&row.IsSystem,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		dbRows = append(dbRows, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]role.Role, 0, len(dbRows))
	for _, row := range dbRows {
		permissions, err := r.queryRolePermissions(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, toDomainRole(row, permissions))
	}
	return results, nil
}

func (r *RoleRepository) queryRolePermissions(ctx context.Context, roleID uint) ([]*permission.Permission, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, rolePermissionsQuery, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*permission.Permission
	for rows.Next() {
		var row models.Permission
		if err := rows.Scan(&row.ID, &row.Name, &row.Slug); err != nil {
			return nil, err
		}
		results = append(results, toDomainPermission(&row))
	}
	return results, rows.Err()
}

func buildRoleFilters(params *role.FindParams) (string, []any) {
	if params == nil || params.Query == "" {
		return "", nil
	}
	return "WHERE name ILIKE $1 OR slug ILIKE $1", []any{"%" + params.Query + "%"}
}
