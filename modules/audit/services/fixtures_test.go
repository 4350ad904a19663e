package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/modules/core/domain/entities/tenant"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
	"github.com/opswell/adminkit/pkg/composables"
)

var errFakeNotFound = errors.New("not found")

type noopTx struct {
	pgx.Tx
}

func serviceContext() context.Context {
	return composables.WithTx(context.Background(), noopTx{})
}

type fakeEventRepo struct {
	events    []*auditevent.AuditEvent
	createErr error

	listCalls   []*auditevent.FindParams
	dailyCounts map[time.Time]int64
	byModule    map[string]int64
	bySubmodule map[string]int64
	topCausers  []auditevent.CauserCount
	deleted     []time.Time
	deleteCount int64
}

func (f *fakeEventRepo) Create(_ context.Context, event *auditevent.AuditEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	event.ID = int64(len(f.events) + 1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) List(_ context.Context, params *auditevent.FindParams) ([]*auditevent.AuditEvent, error) {
	copied := *params
	f.listCalls = append(f.listCalls, &copied)
	start := params.Offset
	if start >= len(f.events) {
		return nil, nil
	}
	end := start + params.Limit
	if params.Limit <= 0 || end > len(f.events) {
		end = len(f.events)
	}
	return f.events[start:end], nil
}

func (f *fakeEventRepo) Count(_ context.Context, _ *auditevent.FindParams) (int64, error) {
	return int64(len(f.events)), nil
}

func (f *fakeEventRepo) CountsByModule(context.Context, time.Time, time.Time) (map[string]int64, error) {
	return f.byModule, nil
}

func (f *fakeEventRepo) CountsBySubmodule(context.Context, time.Time, time.Time) (map[string]int64, error) {
	return f.bySubmodule, nil
}

func (f *fakeEventRepo) TopCausers(context.Context, time.Time, time.Time, int) ([]auditevent.CauserCount, error) {
	return f.topCausers, nil
}

func (f *fakeEventRepo) DailyCounts(context.Context, time.Time, time.Time) (map[time.Time]int64, error) {
	return f.dailyCounts, nil
}

func (f *fakeEventRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleted = append(f.deleted, cutoff)
	return f.deleteCount, nil
}

type fakeLoginRepo struct {
	entries   []*loginaudit.LoginAudit
	createErr error

	listCalls     []*loginaudit.FindParams
	dailySuccess  map[time.Time]int64
	hourly        map[int]int64
	durations     map[int64]time.Duration
	deleted       []time.Time
	deleteCount   int64
	setDurationEr error
}

func (f *fakeLoginRepo) Create(_ context.Context, entry *loginaudit.LoginAudit) error {
	if f.createErr != nil {
		return f.createErr
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLoginRepo) List(_ context.Context, params *loginaudit.FindParams) ([]*loginaudit.LoginAudit, error) {
	copied := *params
	f.listCalls = append(f.listCalls, &copied)
	var result []*loginaudit.LoginAudit
	for _, entry := range f.entries {
		if params.IsSuccessful != nil && entry.IsSuccessful != *params.IsSuccessful {
			continue
		}
		result = append(result, entry)
	}
	start := params.Offset
	if start >= len(result) {
		return nil, nil
	}
	end := start + params.Limit
	if params.Limit <= 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (f *fakeLoginRepo) Count(_ context.Context, params *loginaudit.FindParams) (int64, error) {
	var count int64
	for _, entry := range f.entries {
		if params.IsSuccessful != nil && entry.IsSuccessful != *params.IsSuccessful {
			continue
		}
		count++
	}
	return count, nil
}

func (f *fakeLoginRepo) DailySuccessCounts(context.Context, time.Time, time.Time) (map[time.Time]int64, error) {
	return f.dailySuccess, nil
}

func (f *fakeLoginRepo) HourlyCounts(context.Context, time.Time) (map[int]int64, error) {
	return f.hourly, nil
}

func (f *fakeLoginRepo) SetSessionDuration(_ context.Context, id int64, duration time.Duration) error {
	if f.setDurationEr != nil {
		return f.setDurationEr
	}
	if f.durations == nil {
		f.durations = map[int64]time.Duration{}
	}
	f.durations[id] = duration
	return nil
}

func (f *fakeLoginRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleted = append(f.deleted, cutoff)
	return f.deleteCount, nil
}

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*activesession.ActiveSession

	byMethod    map[string]int64
	deleted     []time.Time
	deleteCount int64
}

func newFakeSessionRepo(sessions ...*activesession.ActiveSession) *fakeSessionRepo {
	repo := &fakeSessionRepo{sessions: map[uuid.UUID]*activesession.ActiveSession{}}
	for _, session := range sessions {
		repo.sessions[session.ID] = session
	}
	return repo
}

func (f *fakeSessionRepo) Create(_ context.Context, session *activesession.ActiveSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	session.IsActive = true
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*activesession.ActiveSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeSessionRepo) ListActive(_ context.Context, _ *activesession.FindParams) ([]*activesession.ActiveSession, error) {
	var result []*activesession.ActiveSession
	for _, session := range f.sessions {
		if session.IsActive {
			result = append(result, session)
		}
	}
	return result, nil
}

func (f *fakeSessionRepo) CountActive(_ context.Context, _ *activesession.FindParams) (int64, error) {
	var count int64
	for _, session := range f.sessions {
		if session.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepo) CountActiveByMethod(context.Context) (map[string]int64, error) {
	return f.byMethod, nil
}

func (f *fakeSessionRepo) Deactivate(_ context.Context, id uuid.UUID) (bool, error) {
	session, ok := f.sessions[id]
	if !ok || !session.IsActive {
		return false, nil
	}
	session.IsActive = false
	return true, nil
}

func (f *fakeSessionRepo) DeactivateExpired(_ context.Context, now time.Time) ([]*activesession.ActiveSession, error) {
	var swept []*activesession.ActiveSession
	for _, session := range f.sessions {
		if session.IsActive && session.ExpiresAt.Before(now) {
			session.IsActive = false
			swept = append(swept, session)
		}
	}
	return swept, nil
}

func (f *fakeSessionRepo) DeleteInactiveOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleted = append(f.deleted, cutoff)
	return f.deleteCount, nil
}

type fakeUserRepo struct {
	existing map[uint]*user.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (*user.User, error) {
	u, ok := f.existing[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, ids []uint) ([]*user.User, error) {
	var result []*user.User
	for _, id := range ids {
		if u, ok := f.existing[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

func (f *fakeUserRepo) Exists(_ context.Context, id uint) (bool, error) {
	_, ok := f.existing[id]
	return ok, nil
}

type fakeTenantRepo struct {
	byID map[uuid.UUID]*tenant.Tenant
}

func (f *fakeTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return t, nil
}

func (f *fakeTenantRepo) GetByDomain(context.Context, string) (*tenant.Tenant, error) {
	return nil, errFakeNotFound
}
func (f *fakeTenantRepo) GetAll(context.Context) ([]*tenant.Tenant, error) { return nil, nil }
func (f *fakeTenantRepo) Create(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	return t, nil
}
func (f *fakeTenantRepo) Update(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	return t, nil
}

type fakePublisher struct {
	published []interface{}
}

func (f *fakePublisher) Publish(args ...interface{}) { f.published = append(f.published, args...) }
func (f *fakePublisher) Subscribe(interface{})       {}
func (f *fakePublisher) Unsubscribe(interface{})     {}
func (f *fakePublisher) Clear()                      {}
func (f *fakePublisher) SubscribersCount() int       { return 0 }
