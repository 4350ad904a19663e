package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
)

func TestSessionService_Start_DefaultsExpiryFromTTL(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := NewSessionService(sessions, &fakeLoginRepo{}, &fakePublisher{})

	session, err := svc.Start(serviceContext(), StartSessionCommand{
		UserID:      7,
		LoginMethod: "password",
	})
	require.NoError(t, err)
	require.True(t, session.IsActive)
	require.NotEqual(t, uuid.Nil, session.ID)
	require.True(t, session.ExpiresAt.After(time.Now()), "default expiry must be in the future")
}

func TestSessionService_Terminate_ClosesLinkedLoginAudit(t *testing.T) {
	loginAuditID := int64(33)
	session := &activesession.ActiveSession{
		ID:           uuid.New(),
		UserID:       7,
		LoginAuditID: &loginAuditID,
		LoginMethod:  "password",
		StartedAt:    time.Now().Add(-90 * time.Minute),
		ExpiresAt:    time.Now().Add(time.Hour),
		IsActive:     true,
	}
	sessions := newFakeSessionRepo(session)
	logins := &fakeLoginRepo{}
	svc := NewSessionService(sessions, logins, &fakePublisher{})

	require.NoError(t, svc.Terminate(serviceContext(), session.ID))
	require.False(t, session.IsActive)

	duration, ok := logins.durations[loginAuditID]
	require.True(t, ok)
	require.InDelta(t, (90 * time.Minute).Seconds(), duration.Seconds(), 60)
}

func TestSessionService_Terminate_InactiveSessionIsConflict(t *testing.T) {
	session := &activesession.ActiveSession{
		ID:        uuid.New(),
		UserID:    7,
		StartedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(time.Hour),
		IsActive:  false,
	}
	svc := NewSessionService(newFakeSessionRepo(session), &fakeLoginRepo{}, &fakePublisher{})

	err := svc.Terminate(serviceContext(), session.ID)
	require.ErrorIs(t, err, ErrSessionNotActive)
	require.False(t, session.IsActive, "no transition back to active")
}

func TestSessionService_Terminate_UnknownSession(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo(), &fakeLoginRepo{}, &fakePublisher{})
	err := svc.Terminate(serviceContext(), uuid.New())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_ExpireStale_SweepsAndClosesDurations(t *testing.T) {
	loginAuditID := int64(44)
	stale := &activesession.ActiveSession{
		ID:           uuid.New(),
		UserID:       7,
		LoginAuditID: &loginAuditID,
		LoginMethod:  "password",
		StartedAt:    time.Now().Add(-13 * time.Hour),
		ExpiresAt:    time.Now().Add(-time.Hour),
		IsActive:     true,
	}
	fresh := &activesession.ActiveSession{
		ID:          uuid.New(),
		UserID:      8,
		LoginMethod: "oauth",
		StartedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
		IsActive:    true,
	}
	sessions := newFakeSessionRepo(stale, fresh)
	logins := &fakeLoginRepo{}
	publisher := &fakePublisher{}
	svc := NewSessionService(sessions, logins, publisher)

	swept, err := svc.ExpireStale(serviceContext())
	require.NoError(t, err)
	require.Equal(t, 1, swept)
	require.False(t, stale.IsActive)
	require.True(t, fresh.IsActive)

	duration, ok := logins.durations[loginAuditID]
	require.True(t, ok)
	require.Equal(t, stale.ExpiresAt.Sub(stale.StartedAt), duration)

	require.Len(t, publisher.published, 1)
	_, ok = publisher.published[0].(*activesession.ExpiredEvent)
	require.True(t, ok)
}

func TestSessionService_GroupedByMethod(t *testing.T) {
	sessions := newFakeSessionRepo()
	sessions.byMethod = map[string]int64{"password": 3, "oauth": 1}
	svc := NewSessionService(sessions, &fakeLoginRepo{}, &fakePublisher{})

	grouped, err := svc.GroupedByMethod(serviceContext())
	require.NoError(t, err)
	require.Equal(t, int64(3), grouped["password"])
	require.Equal(t, int64(1), grouped["oauth"])
}
