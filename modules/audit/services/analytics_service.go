package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
)

// DashboardStats is the read-side composition rendered on the admin
// dashboard. Every field is computed fresh from the stores at call time;
// nothing here is cached.
type DashboardStats struct {
	TotalEvents      int64              `json:"total_events"`
	TotalLogins      int64              `json:"total_logins"`
	FailedLogins     int64              `json:"failed_logins"`
	ActiveSessions   int64              `json:"active_sessions"`
	SessionsByMethod map[string]int64   `json:"sessions_by_method"`
	EventsByModule   map[string]int64   `json:"events_by_module"`
	TopCausers       []CauserActivity   `json:"top_causers"`
	DailyActivity    []DailyCount       `json:"daily_activity"`
	LoginTrends      []DailyCount       `json:"login_trends"`
}

// CauserActivity is a top-causers entry with the actor resolved to a display
// name. Causers deleted from the identity system resolve to "Unknown".
type CauserActivity struct {
	CauserID uint   `json:"causer_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Count    int64  `json:"count"`
}

// UserTimelineEntry interleaves audit events and login attempts for one
// user's activity view.
type UserTimelineEntry struct {
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`

	Event *auditevent.AuditEvent `json:"event,omitempty"`
	Login *loginaudit.LoginAudit `json:"login,omitempty"`
}

// TenantRollup summarizes one tenant's activity.
type TenantRollup struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	TotalLogins    int64     `json:"total_logins"`
	FailedLogins   int64     `json:"failed_logins"`
	ActiveSessions int64     `json:"active_sessions"`
}

type AnalyticsService struct {
	events   auditevent.Repository
	logins   loginaudit.Repository
	sessions activesession.Repository
	users    user.Repository
}

func NewAnalyticsService(
	events auditevent.Repository,
	logins loginaudit.Repository,
	sessions activesession.Repository,
	users user.Repository,
) *AnalyticsService {
	return &AnalyticsService{
		events:   events,
		logins:   logins,
		sessions: sessions,
		users:    users,
	}
}

func (s *AnalyticsService) DashboardStats(ctx context.Context, days int) (*DashboardStats, error) {
	if days <= 0 {
		days = 30
	}
	from, to := dayWindow(days)

	totalEvents, err := s.events.Count(ctx, &auditevent.FindParams{From: &from, To: &to})
	if err != nil {
		return nil, mapStorageError(err)
	}
	totalLogins, err := s.logins.Count(ctx, &loginaudit.FindParams{From: &from, To: &to})
	if err != nil {
		return nil, mapStorageError(err)
	}
	failed := false
	failedLogins, err := s.logins.Count(ctx, &loginaudit.FindParams{From: &from, To: &to, IsSuccessful: &failed})
	if err != nil {
		return nil, mapStorageError(err)
	}
	activeSessions, err := s.sessions.CountActive(ctx, nil)
	if err != nil {
		return nil, mapStorageError(err)
	}
	byMethod, err := s.sessions.CountActiveByMethod(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	byModule, err := s.events.CountsByModule(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}
	topCausers, err := s.events.TopCausers(ctx, from, to, 10)
	if err != nil {
		return nil, mapStorageError(err)
	}
	resolved, err := s.resolveCausers(ctx, topCausers)
	if err != nil {
		return nil, mapStorageError(err)
	}
	dailyEvents, err := s.events.DailyCounts(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}
	dailyLogins, err := s.logins.DailySuccessCounts(ctx, from, to)
	if err != nil {
		return nil, mapStorageError(err)
	}

	return &DashboardStats{
		TotalEvents:      totalEvents,
		TotalLogins:      totalLogins,
		FailedLogins:     failedLogins,
		ActiveSessions:   activeSessions,
		SessionsByMethod: byMethod,
		EventsByModule:   byModule,
		TopCausers:       resolved,
		DailyActivity:    denseDaily(dailyEvents, from, to),
		LoginTrends:      denseDaily(dailyLogins, from, to),
	}, nil
}

// UserTimeline merges the user's caused audit events with their login
// attempts, newest first, capped at limit entries.
func (s *AnalyticsService) UserTimeline(ctx context.Context, userID uint, limit int) ([]UserTimelineEntry, error) {
	limit = clampLimit(limit)
	events, err := s.events.List(ctx, &auditevent.FindParams{CauserID: &userID, Limit: limit})
	if err != nil {
		return nil, mapStorageError(err)
	}
	logins, err := s.logins.List(ctx, &loginaudit.FindParams{UserID: &userID, Limit: limit})
	if err != nil {
		return nil, mapStorageError(err)
	}

	entries := make([]UserTimelineEntry, 0, len(events)+len(logins))
	for _, event := range events {
		entries = append(entries, UserTimelineEntry{Kind: "audit_event", OccurredAt: event.CreatedAt, Event: event})
	}
	for _, login := range logins {
		entries = append(entries, UserTimelineEntry{Kind: "login", OccurredAt: login.LoginAt, Login: login})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *AnalyticsService) TenantRollup(ctx context.Context, tenantID uuid.UUID) (*TenantRollup, error) {
	totalLogins, err := s.logins.Count(ctx, &loginaudit.FindParams{TenantID: &tenantID})
	if err != nil {
		return nil, mapStorageError(err)
	}
	failed := false
	failedLogins, err := s.logins.Count(ctx, &loginaudit.FindParams{TenantID: &tenantID, IsSuccessful: &failed})
	if err != nil {
		return nil, mapStorageError(err)
	}
	activeSessions, err := s.sessions.CountActive(ctx, &activesession.FindParams{TenantID: &tenantID})
	if err != nil {
		return nil, mapStorageError(err)
	}
	return &TenantRollup{
		TenantID:       tenantID,
		TotalLogins:    totalLogins,
		FailedLogins:   failedLogins,
		ActiveSessions: activeSessions,
	}, nil
}

func (s *AnalyticsService) resolveCausers(ctx context.Context, counts []auditevent.CauserCount) ([]CauserActivity, error) {
	ids := make([]uint, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.CauserID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	resolved := make([]CauserActivity, 0, len(counts))
	for _, c := range counts {
		entry := CauserActivity{CauserID: c.CauserID, Name: "Unknown", Count: c.Count}
		if u, ok := byID[c.CauserID]; ok {
			entry.Name = u.FullName()
			entry.Email = u.Email
		}
		resolved = append(resolved, entry)
	}
	return resolved, nil
}
