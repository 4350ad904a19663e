package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
	"github.com/opswell/adminkit/modules/audit/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/repo"
)

var ErrSessionNotFound = fmt.Errorf("session not found")

const sessionFindQuery = `
	SELECT id, user_id, tenant_id, login_audit_id, login_method, started_at, expires_at, is_active
	FROM active_sessions`

type ActiveSessionRepository struct{}

func NewActiveSessionRepository() activesession.Repository {
	return &ActiveSessionRepository{}
}

func (r *ActiveSessionRepository) Create(ctx context.Context, session *activesession.ActiveSession) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	session.IsActive = true

	var tenantID sql.NullString
	if session.TenantID != nil {
		tenantID = sql.NullString{String: session.TenantID.String(), Valid: true}
	}
	var loginAuditID sql.NullInt64
	if session.LoginAuditID != nil {
		loginAuditID = sql.NullInt64{Int64: *session.LoginAuditID, Valid: true}
	}

	_, err = tx.Exec(
		ctx,
		`INSERT INTO active_sessions (id, user_id, tenant_id, login_audit_id, login_method, started_at, expires_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)`,
		session.ID.String(),
		session.UserID,
		tenantID,
		loginAuditID,
		session.LoginMethod,
		session.StartedAt,
		session.ExpiresAt,
	)
	return err
}

func (r *ActiveSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*activesession.ActiveSession, error) {
	sessions, err := r.querySessions(ctx, sessionFindQuery+" WHERE id = $1", id.String())
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	return sessions[0], nil
}

func (r *ActiveSessionRepository) ListActive(ctx context.Context, params *activesession.FindParams) ([]*activesession.ActiveSession, error) {
	where, args := buildSessionFilters(params)
	query := repo.Join(sessionFindQuery, where, "ORDER BY started_at DESC")
	if params != nil {
		query = repo.Join(query, repo.FormatLimitOffset(params.Limit, params.Offset))
	}
	return r.querySessions(ctx, query, args...)
}

func (r *ActiveSessionRepository) CountActive(ctx context.Context, params *activesession.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildSessionFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, repo.Join(`SELECT COUNT(*) FROM active_sessions`, where), args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ActiveSessionRepository) CountActiveByMethod(ctx context.Context) (map[string]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(
		ctx,
		`SELECT login_method, COUNT(*) FROM active_sessions WHERE is_active GROUP BY login_method`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[string]int64)
	for rows.Next() {
		var method string
		var count int64
		if err := rows.Scan(&method, &count); err != nil {
			return nil, err
		}
		results[method] = count
	}
	return results, rows.Err()
}

// Deactivate is a one-way transition: the WHERE is_active guard makes it a
// no-op for sessions already expired or terminated.
func (r *ActiveSessionRepository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(
		ctx,
		`UPDATE active_sessions SET is_active = FALSE WHERE id = $1 AND is_active`,
		id.String(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ActiveSessionRepository) DeactivateExpired(ctx context.Context, now time.Time) ([]*activesession.ActiveSession, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(
		ctx,
		`UPDATE active_sessions SET is_active = FALSE
		 WHERE is_active AND expires_at < $1
		 RETURNING id, user_id, tenant_id, login_audit_id, login_method, started_at, expires_at, is_active`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *ActiveSessionRepository) DeleteInactiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(
		ctx,
		`DELETE FROM active_sessions WHERE NOT is_active AND started_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ActiveSessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]*activesession.ActiveSession, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*activesession.ActiveSession, error) {
	var results []*activesession.ActiveSession
	for rows.Next() {
		var row models.ActiveSession
		if err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.TenantID,
			&row.LoginAuditID,
			&row.LoginMethod,
			&row.StartedAt,
			&row.ExpiresAt,
			&row.IsActive,
		); err != nil {
			return nil, err
		}
		session, err := toDomainActiveSession(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, session)
	}
	return results, rows.Err()
}

func buildSessionFilters(params *activesession.FindParams) (string, []any) {
	conditions := []string{"is_active"}
	var args []any
	if params != nil {
		add := func(condition string, value any) {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf(condition, len(args)))
		}
		if params.UserID != nil {
			add("user_id = $%d", *params.UserID)
		}
		if params.TenantID != nil {
			add("tenant_id = $%d", params.TenantID.String())
		}
		if params.LoginMethod != "" {
			add("login_method = $%d", params.LoginMethod)
		}
	}
	return repo.JoinWhere(conditions...), args
}
