package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/audit/infrastructure/persistence/models"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/repo"
)

const auditEventFindQuery = `
	SELECT id, module, submodule, action, description, causer_id, subject_type, subject_id, properties, created_at
	FROM audit_events`

type AuditEventRepository struct{}

func NewAuditEventRepository() auditevent.Repository {
	return &AuditEventRepository{}
}

func (r *AuditEventRepository) Create(ctx context.Context, event *auditevent.AuditEvent) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	dbRow, err := toDBAuditEvent(event)
	if err != nil {
		return err
	}
	if dbRow.CreatedAt.IsZero() {
		dbRow.CreatedAt = time.Now()
	}
	return tx.QueryRow(
		ctx,
		`INSERT INTO audit_events (module, submodule, action, description, causer_id, subject_type, subject_id, properties, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		dbRow.Module,
		dbRow.Submodule,
		dbRow.Action,
		dbRow.Description,
		dbRow.CauserID,
		dbRow.SubjectType,
		dbRow.SubjectID,
		dbRow.Properties,
		dbRow.CreatedAt,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *AuditEventRepository) List(ctx context.Context, params *auditevent.FindParams) ([]*auditevent.AuditEvent, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildAuditEventFilters(params)
	query := repo.Join(auditEventFindQuery, where, "ORDER BY created_at DESC, id DESC")
	if params != nil {
		query = repo.Join(query, repo.FormatLimitOffset(params.Limit, params.Offset))
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit events")
	}
	defer rows.Close()

	var results []*auditevent.AuditEvent
	for rows.Next() {
		var row models.AuditEvent
		if err := rows.Scan(
			&row.ID,
			&row.Module,
			&row.Submodule,
			&row.Action,
			&row.Description,
			&row.CauserID,
			&row.SubjectType,
			&row.SubjectID,
			&row.Properties,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		event, err := toDomainAuditEvent(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, event)
	}
	return results, rows.Err()
}

func (r *AuditEventRepository) Count(ctx context.Context, params *auditevent.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildAuditEventFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, repo.Join(`SELECT COUNT(*) FROM audit_events`, where), args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count audit events")
	}
	return count, nil
}

func (r *AuditEventRepository) CountsByModule(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	return r.groupedCounts(ctx, "module", from, to)
}

func (r *AuditEventRepository) CountsBySubmodule(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	return r.groupedCounts(ctx, "COALESCE(submodule, '')", from, to)
}

func (r *AuditEventRepository) TopCausers(ctx context.Context, from, to time.Time, limit int) ([]auditevent.CauserCount, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(
		ctx,
		`SELECT causer_id, COUNT(*)
		 FROM audit_events
		 WHERE causer_id IS NOT NULL AND created_at >= $1 AND created_at < $2
		 GROUP BY causer_id
		 ORDER BY COUNT(*) DESC, causer_id
		 LIMIT $3`,
		from,
		to,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []auditevent.CauserCount
	for rows.Next() {
		var causerID int64
		var count int64
		if err := rows.Scan(&causerID, &count); err != nil {
			return nil, err
		}
		results = append(results, auditevent.CauserCount{CauserID: uint(causerID), Count: count})
	}
	return results, rows.Err()
}

func (r *AuditEventRepository) DailyCounts(ctx context.Context, from, to time.Time) (map[time.Time]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(
		ctx,
		`SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		 FROM audit_events
		 WHERE created_at >= $1 AND created_at < $2
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

func (r *AuditEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete audit events")
	}
	return tag.RowsAffected(), nil
}

func (r *AuditEventRepository) groupedCounts(ctx context.Context, column string, from, to time.Time) (map[string]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) FROM audit_events WHERE created_at >= $1 AND created_at < $2 GROUP BY 1`,
		column,
	)
	rows, err := tx.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		results[key] = count
	}
	return results, rows.Err()
}

func buildAuditEventFilters(params *auditevent.FindParams) (string, []any) {
	if params == nil {
		return "", nil
	}
	var conditions []string
	var args []any
	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}
	if params.Module != "" {
		add("module = $%d", params.Module)
	}
	if params.Submodule != "" {
		add("submodule = $%d", params.Submodule)
	}
	if params.CauserID != nil {
		add("causer_id = $%d", *params.CauserID)
	}
	if params.SubjectType != "" {
		add("subject_type = $%d", params.SubjectType)
	}
	if params.SubjectID != "" {
		add("subject_id = $%d", params.SubjectID)
	}
	if params.From != nil {
		add("created_at >= $%d", *params.From)
	}
	if params.To != nil {
		add("created_at < $%d", *params.To)
	}
	return repo.JoinWhere(conditions...), args
}
