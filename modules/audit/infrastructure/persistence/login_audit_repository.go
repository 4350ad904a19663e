package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/modules/audit/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/repo"
)

const loginAuditFindQuery = `
	SELECT id, user_id, tenant_id, login_method, ip_address, user_agent, is_successful, failure_reason, login_at, session_duration
	FROM login_audits`

type LoginAuditRepository struct{}

func NewLoginAuditRepository() loginaudit.Repository {
	return &LoginAuditRepository{}
}

func (r *LoginAuditRepository) Create(ctx context.Context, log *loginaudit.LoginAudit) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if log.LoginAt.IsZero() {
		log.LoginAt = time.Now()
	}

	var userID sql.NullInt64
	if log.UserID != nil {
		userID = sql.NullInt64{Int64: int64(*log.UserID), Valid: true}
	}
	var tenantID sql.NullString
	if log.TenantID != nil {
		tenantID = sql.NullString{String: log.TenantID.String(), Valid: true}
	}

	return tx.QueryRow(
		ctx,
		`INSERT INTO login_audits (user_id, tenant_id, login_method, ip_address, user_agent, is_successful, failure_reason, login_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, login_at`,
		userID,
		tenantID,
		log.LoginMethod,
		log.IPAddress,
		log.UserAgent,
		log.IsSuccessful,
		sql.NullString{String: log.FailureReason, Valid: log.FailureReason != ""},
		log.LoginAt,
	).Scan(&log.ID, &log.LoginAt)
}

func (r *LoginAuditRepository) List(ctx context.Context, params *loginaudit.FindParams) ([]*loginaudit.LoginAudit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildLoginAuditFilters(params)
	query := repo.Join(loginAuditFindQuery, where, "ORDER BY login_at DESC, id DESC")
	if params != nil {
		query = repo.Join(query, repo.FormatLimitOffset(params.Limit, params.Offset))
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list login audits")
	}
	defer rows.Close()

	var results []*loginaudit.LoginAudit
	for rows.Next() {
		var row models.LoginAudit
		if err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.TenantID,
			&row.LoginMethod,
			&row.IPAddress,
			&row.UserAgent,
			&row.IsSuccessful,
			&row.FailureReason,
			&row.LoginAt,
			&row.SessionDuration,
		); err != nil {
			return nil, err
		}
		log, err := toDomainLoginAudit(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, log)
	}
	return results, rows.Err()
}

func (r *LoginAuditRepository) Count(ctx context.Context, params *loginaudit.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildLoginAuditFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, repo.Join(`SELECT COUNT(*) FROM login_audits`, where), args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count login audits")
	}
	return count, nil
}

func (r *LoginAuditRepository) DailySuccessCounts(ctx context.Context, from, to time.Time) (map[time.Time]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(
		ctx,
		`SELECT date_trunc('day', login_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		 FROM login_audits
		 WHERE is_successful AND login_at >= $1 AND login_at < $2
		 GROUP BY day`,
		from,
		to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[time.Time]int64)
	for rows.Next() {
		var day time.Time
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		results[day.UTC()] = count
	}
	return results, rows.Err()
}

func (r *LoginAuditRepository) HourlyCounts(ctx context.Context, since time.Time) (map[int]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(
		ctx,
		`SELECT EXTRACT(HOUR FROM login_at AT TIME ZONE 'UTC')::int AS hour, COUNT(*)
		 FROM login_audits
		 WHERE login_at >= $1
		 GROUP BY hour`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[int]int64)
	for rows.Next() {
		var hour int
		var count int64
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, err
		}
		results[hour] = count
	}
	return results, rows.Err()
}

func (r *LoginAuditRepository) SetSessionDuration(ctx context.Context, id int64, duration time.Duration) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	_, err = tx.Exec(
		ctx,
		`UPDATE login_audits SET session_duration = $1 WHERE id = $2`,
		int64(duration.Seconds()),
		id,
	)
	return err
}

func (r *LoginAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM login_audits WHERE login_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete login audits")
	}
	return tag.RowsAffected(), nil
}

func buildLoginAuditFilters(params *loginaudit.FindParams) (string, []any) {
	if params == nil {
		return "", nil
	}
	var conditions []string
	var args []any
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
	if params.IsSuccessful != nil {
		add("is_successful = $%d", *params.IsSuccessful)
	}
	if params.From != nil {
		add("login_at >= $%d", *params.From)
	}
	if params.To != nil {
		add("login_at < $%d", *params.To)
	}
	return repo.JoinWhere(conditions...), args
}
