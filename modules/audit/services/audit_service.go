package services

import (
	"context"
	"time"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/configuration"
	"github.com/opswell/adminkit/pkg/eventbus"
)

// Statistics is the aggregate view over a date range. DailyCounts is dense:
// every day of the range is present, zero-filled.
type Statistics struct {
	TotalEvents int64
	ByModule    map[string]int64
	BySubmodule map[string]int64
	TopCausers  []auditevent.CauserCount
	DailyCounts []DailyCount
}

type AuditService struct {
	events    auditevent.Repository
	publisher eventbus.EventBus
}

func NewAuditService(events auditevent.Repository, publisher eventbus.EventBus) *AuditService {
	return &AuditService{
		events:    events,
		publisher: publisher,
	}
}

// Record appends an audit event. It never reports failure to the caller: a
// logging outage must not abort the admin action that produced the event, so
// errors are logged at warn level and swallowed.
func (s *AuditService) Record(ctx context.Context, event *auditevent.AuditEvent) {
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		return s.events.Create(txCtx, event)
	})
	if err != nil {
		composables.UseLogger(ctx).WithError(err).WithFields(map[string]any{
			"module": event.Module,
			"action": event.Action,
		}).Warn("failed to record audit event")
		return
	}
	s.publisher.Publish(&auditevent.CreatedEvent{Result: event})
}

// Query returns a filtered page of events, newest first, plus the unbounded
// total for the same filters. Page size is clamped to the configured maximum.
func (s *AuditService) Query(ctx context.Context, params *auditevent.FindParams) ([]*auditevent.AuditEvent, int64, error) {
	if params == nil {
		params = &auditevent.FindParams{}
	}
	maxPage := configuration.Use().MaxPageSize
	if params.Limit <= 0 || params.Limit > maxPage {
		params.Limit = maxPage
	}
	events, err := s.events.List(ctx, params)
	if err != nil {
		return nil, 0, mapStorageError(err)
	}
	total, err := s.events.Count(ctx, params)
	if err != nil {
		return nil, 0, mapStorageError(err)
	}
	return events, total, nil
}

func (s *AuditService) Count(ctx context.Context, params *auditevent.FindParams) (int64, error) {
	total, err := s.events.Count(ctx, params)
	return total, mapStorageError(err)
}

func (s *AuditService) Statistics(ctx context.Context, from, to time.Time) (*Statistics, error) {
	fromPtr, toPtr := from, to
	total, err := s.events.Count(ctx, &auditevent.FindParams{From: &fromPtr, To: &toPtr})
	if err != nil {
		return nil, mapStorageError(err)
	}
	byModule, err := s.events.CountsByModule(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}
	bySubmodule, err := s.events.CountsBySubmodule(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}
	topCausers, err := s.events.TopCausers(ctx, from, to, 10)
	if err != nil {
		return nil, mapStorageError(err)
	}
	daily, err := s.events.DailyCounts(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return &Statistics{
		TotalEvents: total,
		ByModule:    byModule,
		BySubmodule: bySubmodule,
		TopCausers:  topCausers,
		DailyCounts: denseDaily(daily, from, to),
	}, nil
}

// Cleanup deletes events older than minAgeDays. Requests below the retention
// floor are rejected before touching storage.
func (s *AuditService) Cleanup(ctx context.Context, minAgeDays int) (int64, error) {
	floor := configuration.Use().Retention.FloorDays
	if minAgeDays < floor {
		return 0, ErrInvalidRetention
	}
	cutoff := time.Now().AddDate(0, 0, -minAgeDays)
	deleted, err := composables.InTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.events.DeleteOlderThan(txCtx, cutoff)
	})
	if err != nil {
		return 0, mapStorageError(err)
	}
	return deleted, nil
}
