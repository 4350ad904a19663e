package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/configuration"
	"github.com/opswell/adminkit/pkg/eventbus"
)

// RecordAttemptCommand describes one authentication attempt reported by the
// collaborating auth layer. IP and UserAgent default to the request context
// when left empty.
type RecordAttemptCommand struct {
	UserID        *uint
	TenantID      *uuid.UUID
	LoginMethod   string
	IPAddress     string
	UserAgent     string
	IsSuccessful  bool
	FailureReason string
}

type LoginAuditService struct {
	logins    loginaudit.Repository
	publisher eventbus.EventBus
}

func NewLoginAuditService(logins loginaudit.Repository, publisher eventbus.EventBus) *LoginAuditService {
	return &LoginAuditService{
		logins:    logins,
		publisher: publisher,
	}
}

func (s *LoginAuditService) RecordAttempt(ctx context.Context, cmd RecordAttemptCommand) (*loginaudit.LoginAudit, error) {
	if cmd.IPAddress == "" {
		cmd.IPAddress, _ = composables.UseIP(ctx)
	}
	if cmd.UserAgent == "" {
		cmd.UserAgent, _ = composables.UseUserAgent(ctx)
	}
	entry := &loginaudit.LoginAudit{
		UserID:        cmd.UserID,
		TenantID:      cmd.TenantID,
		LoginMethod:   cmd.LoginMethod,
		IPAddress:     cmd.IPAddress,
		UserAgent:     cmd.UserAgent,
		IsSuccessful:  cmd.IsSuccessful,
		FailureReason: cmd.FailureReason,
		LoginAt:       time.Now(),
	}
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		return s.logins.Create(txCtx, entry)
	})
	if err != nil {
		return nil, mapStorageError(err)
	}
	s.publisher.Publish(&loginaudit.RecordedEvent{Result: entry})
	return entry, nil
}

// RecentActivity returns the newest attempts. Each call is a fresh query;
// there is no cursor state to resume.
func (s *LoginAuditService) RecentActivity(ctx context.Context, limit int) ([]*loginaudit.LoginAudit, error) {
	entries, err := s.logins.List(ctx, &loginaudit.FindParams{Limit: clampLimit(limit)})
	return entries, mapStorageError(err)
}

// FailedAttempts supplies the facts for anomaly review. No lockout decision
// is made here; that policy belongs to the auth layer.
func (s *LoginAuditService) FailedAttempts(ctx context.Context, limit int) ([]*loginaudit.LoginAudit, error) {
	failed := false
	entries, err := s.logins.List(ctx, &loginaudit.FindParams{
		IsSuccessful: &failed,
		Limit:        clampLimit(limit),
	})
	return entries, mapStorageError(err)
}

func (s *LoginAuditService) List(ctx context.Context, params *loginaudit.FindParams) ([]*loginaudit.LoginAudit, int64, error) {
	if params == nil {
		params = &loginaudit.FindParams{}
	}
	params.Limit = clampLimit(params.Limit)
	entries, err := s.logins.List(ctx, params)
	if err != nil {
		return nil, 0, mapStorageError(err)
	}
	total, err := s.logins.Count(ctx, params)
	if err != nil {
		return nil, 0, mapStorageError(err)
	}
	return entries, total, nil
}

// Trends returns a dense successful-login series covering the last `days`
// days, one zero-filled entry per day, ascending.
func (s *LoginAuditService) Trends(ctx context.Context, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 7
	}
	from, to := dayWindow(days)
	counts, err := s.logins.DailySuccessCounts(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return denseDaily(counts, from, to), nil
}

// HourlyDistribution returns a 24-bucket histogram of login attempts over the
// last `days` days. All hours 0-23 are present even when zero.
func (s *LoginAuditService) HourlyDistribution(ctx context.Context, days int) ([]HourlyCount, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	counts, err := s.logins.HourlyCounts(ctx, since)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return denseHourly(counts), nil
}

func clampLimit(limit int) int {
	maxPage := configuration.Use().MaxPageSize
	if limit <= 0 || limit > maxPage {
		return maxPage
	}
	return limit
}
