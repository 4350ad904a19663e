package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opswell/adminkit/modules/core/domain/entities/roleassignment"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/repo"
)

var (
	ErrAssignmentExists   = fmt.Errorf("role assignment already exists")
	ErrAssignmentNotFound = fmt.Errorf("role assignment not found")
)

// Unique index names from migrations; a 23505 on either means the exact
// (user, role, scope) triple already exists.
const (
	scopedUniqConstraint = "role_assignments_scoped_uniq"
	globalUniqConstraint = "role_assignments_global_uniq"
)

const assignmentFindQuery = `SELECT id, user_id, role_id, tenant_id, created_at FROM role_assignments`

type RoleAssignmentRepository struct{}

func NewRoleAssignmentRepository() roleassignment.Repository {
	return &RoleAssignmentRepository{}
}

func (r *RoleAssignmentRepository) List(ctx context.Context, params *roleassignment.FindParams) ([]*roleassignment.RoleAssignment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildAssignmentFilters(params)
	query := repo.Join(assignmentFindQuery, where, "ORDER BY created_at DESC")
	if params != nil {
		query = repo.Join(query, repo.FormatLimitOffset(params.Limit, params.Offset))
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*roleassignment.RoleAssignment
	for rows.Next() {
		var row models.RoleAssignment
		if err := rows.Scan(&row.ID, &row.UserID, &row.RoleID, &row.TenantID, &row.CreatedAt); err != nil {
			return nil, err
		}
		entity, err := toDomainRoleAssignment(&row)
		if err != nil {
			return nil, errors.Wrap(err, "failed to map role assignment row")
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func (r *RoleAssignmentRepository) Count(ctx context.Context, params *roleassignment.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAssignmentFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, repo.Join(`SELECT COUNT(*) FROM role_assignments`, where), args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts the binding. The check-then-insert race is closed by the
// partial unique indexes: a concurrent duplicate surfaces as a unique
// violation and is reported as ErrAssignmentExists.
func (r *RoleAssignmentRepository) Create(ctx context.Context, a *roleassignment.RoleAssignment) (*roleassignment.RoleAssignment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var tenantID any
	if a.TenantID != nil {
		tenantID = a.TenantID.String()
	}

	created := *a
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO role_assignments (user_id, role_id, tenant_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		a.UserID,
		a.RoleID,
		tenantID,
	).Scan(&created.ID, &created.CreatedAt); err != nil {
		return nil, mapAssignmentPgError(err)
	}
	return &created, nil
}

func (r *RoleAssignmentRepository) Delete(ctx context.Context, userID, roleID uint, tenantID *uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	var tag pgconn.CommandTag
	if tenantID == nil {
		tag, err = tx.Exec(
			ctx,
			`DELETE FROM role_assignments WHERE user_id = $1 AND role_id = $2 AND tenant_id IS NULL`,
			userID,
			roleID,
		)
	} else {
		tag, err = tx.Exec(
			ctx,
			`DELETE FROM role_assignments WHERE user_id = $1 AND role_id = $2 AND tenant_id = $3`,
			userID,
			roleID,
			tenantID.String(),
		)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RoleAssignmentRepository) DeleteForUser(ctx context.Context, userID uint) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM role_assignments WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *RoleAssignmentRepository) DeleteForRole(ctx context.Context, roleID uint) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM role_assignments WHERE role_id = $1`, roleID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func mapAssignmentPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if pgErr.ConstraintName == scopedUniqConstraint || pgErr.ConstraintName == globalUniqConstraint {
			return ErrAssignmentExists
		}
		return err
	case "23503": // foreign_key_violation
		switch {
		case strings.Contains(pgErr.ConstraintName, "user"):
			return ErrUserNotFound
		case strings.Contains(pgErr.ConstraintName, "role"):
			return ErrRoleNotFound
		case strings.Contains(pgErr.ConstraintName, "tenant"):
			return ErrTenantNotFound
		}
		return err
	default:
		return err
	}
}

func buildAssignmentFilters(params *roleassignment.FindParams) (string, []any) {
	if params == nil {
		return "", nil
	}
	var conditions []string
	var args []any
	if params.UserID != nil {
		args = append(args, *params.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if params.RoleID != nil {
		args = append(args, *params.RoleID)
		conditions = append(conditions, fmt.Sprintf("role_id = $%d", len(args)))
	}
	if params.ScopeSet {
		if params.TenantID == nil {
			conditions = append(conditions, "tenant_id IS NULL")
		} else {
			args = append(args, params.TenantID.String())
			conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", len(args)))
		}
	}
	return repo.JoinWhere(conditions...), args
}
