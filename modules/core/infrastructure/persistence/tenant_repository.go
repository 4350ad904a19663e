package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/opswell/adminkit/modules/core/domain/entities/tenant"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
)

var ErrTenantNotFound = fmt.Errorf("tenant not found")

const tenantFindQuery = `SELECT id, name, domain, is_active, max_users, created_at, updated_at FROM tenants`

type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	tenants, err := r.queryTenants(ctx, tenantFindQuery+" WHERE id = $1", id.String())
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, ErrTenantNotFound
	}
	return tenants[0], nil
}

func (r *TenantRepository) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	tenants, err := r.queryTenants(ctx, tenantFindQuery+" WHERE domain = $1", domain)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, ErrTenantNotFound
	}
	return tenants[0], nil
}

func (r *TenantRepository) GetAll(ctx context.Context) ([]*tenant.Tenant, error) {
	return r.queryTenants(ctx, tenantFindQuery+" ORDER BY name")
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	domain := strings.ToLower(strings.TrimSpace(t.Domain()))
	var idStr string
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO tenants (id, name, domain, is_active, max_users, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		t.ID().String(),
		t.Name(),
		domain,
		t.IsActive(),
		t.MaxUsers(),
		t.CreatedAt(),
		t.UpdatedAt(),
	).Scan(&idStr); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	domain := strings.ToLower(strings.TrimSpace(t.Domain()))
	tag, err := tx.Exec(
		ctx,
		`UPDATE tenants SET name = $1, domain = $2, is_active = $3, max_users = $4, updated_at = $5 WHERE id = $6`,
		t.Name(),
		domain,
		t.IsActive(),
		t.MaxUsers(),
		t.UpdatedAt(),
		t.ID().String(),
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrTenantNotFound
	}
	return r.GetByID(ctx, t.ID())
}

func (r *TenantRepository) queryTenants(ctx context.Context, query string, args ...any) ([]*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*tenant.Tenant
	for rows.Next() {
		var row models.Tenant
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Domain,
			&row.IsActive,
			&row.MaxUsers,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		entity, err := toDomainTenant(&row)
		if err != nil {
			return nil, errors.Wrap(err, "failed to map tenant row")
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
