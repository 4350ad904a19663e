package persistence

import (
	"context"

	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
)

const permissionFindQuery = `SELECT id, name, slug FROM permissions`

type PermissionRepository struct{}

func NewPermissionRepository() permission.Repository {
	return &PermissionRepository{}
}

func (r *PermissionRepository) GetAll(ctx context.Context) ([]*permission.Permission, error) {
	return r.queryPermissions(ctx, permissionFindQuery+" ORDER BY slug")
}

func (r *PermissionRepository) GetBySlugs(ctx context.Context, slugs []string) ([]*permission.Permission, error) {
	if len(slugs) == 0 {
		return []*permission.Permission{}, nil
	}
	return r.queryPermissions(ctx, permissionFindQuery+" WHERE slug = ANY($1) ORDER BY slug", slugs)
}

func (r *PermissionRepository) Save(ctx context.Context, p *permission.Permission) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return tx.QueryRow(
		ctx,
		`INSERT INTO permissions (name, slug)
		 VALUES ($1, $2)
		 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		p.Name,
		p.Slug,
	).Scan(&p.ID)
}

func (r *PermissionRepository) queryPermissions(ctx context.Context, query string, args ...any) ([]*permission.Permission, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
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
