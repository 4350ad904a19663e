package services

import (
	"context"
	"time"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/configuration"
)

// CleanupResult reports both counts of the paired purge.
type CleanupResult struct {
	LoginAuditsDeleted int64 `json:"login_audits_deleted"`
	SessionsDeleted    int64 `json:"sessions_deleted"`
}

// CleanupService purges aged login-audit rows together with the inactive
// sessions they spawned. A single call reports both counts.
type CleanupService struct {
	logins   loginaudit.Repository
	sessions activesession.Repository
}

func NewCleanupService(logins loginaudit.Repository, sessions activesession.Repository) *CleanupService {
	return &CleanupService{
		logins:   logins,
		sessions: sessions,
	}
}

// Cleanup deletes login audits and inactive sessions older than minAgeDays.
// Requests below the retention floor fail outright and delete nothing.
func (s *CleanupService) Cleanup(ctx context.Context, minAgeDays int) (*CleanupResult, error) {
	floor := configuration.Use().Retention.FloorDays
	if minAgeDays < floor {
		return nil, ErrInvalidRetention
	}
	cutoff := time.Now().AddDate(0, 0, -minAgeDays)
	result, err := composables.InTxResult(ctx, func(txCtx context.Context) (*CleanupResult, error) {
		sessionsDeleted, err := s.sessions.DeleteInactiveOlderThan(txCtx, cutoff)
		if err != nil {
			return nil, err
		}
		loginsDeleted, err := s.logins.DeleteOlderThan(txCtx, cutoff)
		if err != nil {
			return nil, err
		}
		return &CleanupResult{
			LoginAuditsDeleted: loginsDeleted,
			SessionsDeleted:    sessionsDeleted,
		}, nil
	})
	if err != nil {
		return nil, mapStorageError(err)
	}
	return result, nil
}
