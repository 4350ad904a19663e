package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/modules/core/domain/entities/roleassignment"
	"github.com/opswell/adminkit/pkg/composables"
)

type stubTx struct {
	pgx.Tx

	lastSQL  string
	lastArgs []any

	execTag pgconn.CommandTag
	execErr error
	rowScan func(dest ...any) error
}

func (s *stubTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.lastSQL = sql
	s.lastArgs = args
	return s.execTag, s.execErr
}

func (s *stubTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	s.lastSQL = sql
	s.lastArgs = args
	return stubRow{scan: s.rowScan}
}

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return nil
	}
	return r.scan(dest...)
}

func txContext(tx pgx.Tx) context.Context {
	return composables.WithTx(context.Background(), tx)
}

func TestRoleAssignmentRepository_Create_MapsUniqueViolation(t *testing.T) {
	for _, constraint := range []string{scopedUniqConstraint, globalUniqConstraint} {
		tx := &stubTx{
			rowScan: func(...any) error {
				return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
			},
		}
		repo := NewRoleAssignmentRepository()
		_, err := repo.Create(txContext(tx), &roleassignment.RoleAssignment{UserID: 1, RoleID: 2})
		require.ErrorIs(t, err, ErrAssignmentExists, "constraint %s", constraint)
	}
}

func TestRoleAssignmentRepository_Create_UnrelatedUniqueViolationPassesThrough(t *testing.T) {
	tx := &stubTx{
		rowScan: func(...any) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "roles_slug_key"}
		},
	}
	repo := NewRoleAssignmentRepository()
	_, err := repo.Create(txContext(tx), &roleassignment.RoleAssignment{UserID: 1, RoleID: 2})
	require.NotErrorIs(t, err, ErrAssignmentExists)
}

func TestRoleAssignmentRepository_Create_MapsForeignKeyViolations(t *testing.T) {
	cases := map[string]error{
		"role_assignments_user_id_fkey":   ErrUserNotFound,
		"role_assignments_role_id_fkey":   ErrRoleNotFound,
		"role_assignments_tenant_id_fkey": ErrTenantNotFound,
	}
	repo := NewRoleAssignmentRepository()
	for constraint, want := range cases {
		tx := &stubTx{
			rowScan: func(...any) error {
				return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
			},
		}
		_, err := repo.Create(txContext(tx), &roleassignment.RoleAssignment{UserID: 1, RoleID: 2})
		require.ErrorIs(t, err, want, "constraint %s", constraint)
	}
}

func TestRoleAssignmentRepository_Create_GlobalScopeInsertsNullTenant(t *testing.T) {
	now := time.Now()
	tx := &stubTx{
		rowScan: func(dest ...any) error {
			*dest[0].(*uint) = 42
			*dest[1].(*time.Time) = now
			return nil
		},
	}
	repo := NewRoleAssignmentRepository()
	created, err := repo.Create(txContext(tx), &roleassignment.RoleAssignment{UserID: 7, RoleID: 3})
	require.NoError(t, err)
	require.Equal(t, uint(42), created.ID)
	require.Equal(t, now, created.CreatedAt)
	require.Len(t, tx.lastArgs, 3)
	require.Nil(t, tx.lastArgs[2])
}

func TestRoleAssignmentRepository_Delete_ScopesSQLByTenant(t *testing.T) {
	tenantID := uuid.New()
	repo := NewRoleAssignmentRepository()

	tx := &stubTx{execTag: pgconn.NewCommandTag("DELETE 1")}
	existed, err := repo.Delete(txContext(tx), 7, 3, nil)
	require.NoError(t, err)
	require.True(t, existed)
	require.Contains(t, tx.lastSQL, "tenant_id IS NULL")
	require.Len(t, tx.lastArgs, 2)

	tx = &stubTx{execTag: pgconn.NewCommandTag("DELETE 1")}
	existed, err = repo.Delete(txContext(tx), 7, 3, &tenantID)
	require.NoError(t, err)
	require.True(t, existed)
	require.Contains(t, tx.lastSQL, "tenant_id = $3")
	require.Equal(t, tenantID.String(), tx.lastArgs[2])
}

func TestRoleAssignmentRepository_Delete_ReportsAbsentTriple(t *testing.T) {
	tx := &stubTx{execTag: pgconn.NewCommandTag("DELETE 0")}
	repo := NewRoleAssignmentRepository()
	existed, err := repo.Delete(txContext(tx), 7, 3, nil)
	require.NoError(t, err)
	require.False(t, existed)
}

func TestBuildAssignmentFilters(t *testing.T) {
	userID := uint(7)
	tenantID := uuid.New()

	where, args := buildAssignmentFilters(nil)
	require.Empty(t, where)
	require.Empty(t, args)

	where, args = buildAssignmentFilters(&roleassignment.FindParams{UserID: &userID})
	require.Equal(t, "WHERE user_id = $1", where)
	require.Equal(t, []any{userID}, args)

	where, _ = buildAssignmentFilters(&roleassignment.FindParams{ScopeSet: true})
	require.Contains(t, where, "tenant_id IS NULL")

	where, args = buildAssignmentFilters(&roleassignment.FindParams{ScopeSet: true, TenantID: &tenantID})
	require.Contains(t, where, "tenant_id = $1")
	require.Equal(t, []any{tenantID.String()}, args)
}
