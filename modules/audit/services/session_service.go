package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/configuration"
	"github.com/opswell/adminkit/pkg/eventbus"
)

// StartSessionCommand opens a live session for an authenticated user. The
// token itself is owned by the auth layer; this registry only tracks
// liveness. LoginAuditID links back to the successful attempt so the
// session's duration can be written there when it ends.
type StartSessionCommand struct {
	UserID       uint
	TenantID     *uuid.UUID
	LoginAuditID *int64
	LoginMethod  string
	ExpiresAt    time.Time
}

// SessionService tracks currently-live sessions. The lifecycle is one-way:
// Active to Terminated on explicit logout, Active to Expired by the sweeper.
type SessionService struct {
	sessions  activesession.Repository
	logins    sessionDurationWriter
	publisher eventbus.EventBus
}

// sessionDurationWriter is the slice of the login-audit repository the
// session lifecycle needs.
type sessionDurationWriter interface {
	SetSessionDuration(ctx context.Context, id int64, duration time.Duration) error
}

func NewSessionService(
	sessions activesession.Repository,
	logins sessionDurationWriter,
	publisher eventbus.EventBus,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		logins:    logins,
		publisher: publisher,
	}
}

func (s *SessionService) Start(ctx context.Context, cmd StartSessionCommand) (*activesession.ActiveSession, error) {
	if cmd.ExpiresAt.IsZero() {
		cmd.ExpiresAt = time.Now().Add(configuration.Use().Session.TTL)
	}
	session := &activesession.ActiveSession{
		UserID:       cmd.UserID,
		TenantID:     cmd.TenantID,
		LoginAuditID: cmd.LoginAuditID,
		LoginMethod:  cmd.LoginMethod,
		ExpiresAt:    cmd.ExpiresAt,
	}
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		return s.sessions.Create(txCtx, session)
	})
	if err != nil {
		return nil, mapStorageError(err)
	}
	s.publisher.Publish(&activesession.StartedEvent{Result: session})
	return session, nil
}

func (s *SessionService) GetByID(ctx context.Context, id uuid.UUID) (*activesession.ActiveSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	return session, mapStorageError(err)
}

// Terminate closes a session on explicit logout. Terminating an already
// closed session reports ErrSessionNotActive rather than success so callers
// can tell a stale logout apart. The linked login-audit row gains the final
// session duration.
func (s *SessionService) Terminate(ctx context.Context, id uuid.UUID) error {
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		session, err := s.sessions.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		wasActive, err := s.sessions.Deactivate(txCtx, id)
		if err != nil {
			return err
		}
		if !wasActive {
			return ErrSessionNotActive
		}
		if session.LoginAuditID != nil {
			duration := time.Since(session.StartedAt)
			if err := s.logins.SetSessionDuration(txCtx, *session.LoginAuditID, duration); err != nil {
				return err
			}
		}
		s.publisher.Publish(&activesession.TerminatedEvent{Result: session})
		return nil
	})
	return mapStorageError(err)
}

// ExpireStale sweeps sessions whose expiry has passed, closing the linked
// login-audit facts with the TTL-bounded duration. Returns how many were
// swept.
func (s *SessionService) ExpireStale(ctx context.Context) (int, error) {
	now := time.Now()
	expired, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*activesession.ActiveSession, error) {
		swept, err := s.sessions.DeactivateExpired(txCtx, now)
		if err != nil {
			return nil, err
		}
		for _, session := range swept {
			if session.LoginAuditID == nil {
				continue
			}
			duration := session.ExpiresAt.Sub(session.StartedAt)
			if err := s.logins.SetSessionDuration(txCtx, *session.LoginAuditID, duration); err != nil {
				return nil, err
			}
		}
		return swept, nil
	})
	if err != nil {
		return 0, mapStorageError(err)
	}
	for _, session := range expired {
		s.publisher.Publish(&activesession.ExpiredEvent{Result: session})
	}
	return len(expired), nil
}

// ActiveSessions answers "who is online now".
func (s *SessionService) ActiveSessions(ctx context.Context, params *activesession.FindParams) ([]*activesession.ActiveSession, error) {
	if params == nil {
		params = &activesession.FindParams{}
	}
	params.Limit = clampLimit(params.Limit)
	sessions, err := s.sessions.ListActive(ctx, params)
	return sessions, mapStorageError(err)
}

func (s *SessionService) CountActive(ctx context.Context, params *activesession.FindParams) (int64, error) {
	count, err := s.sessions.CountActive(ctx, params)
	return count, mapStorageError(err)
}

// GroupedByMethod counts the live sessions per login method.
func (s *SessionService) GroupedByMethod(ctx context.Context) (map[string]int64, error) {
	grouped, err := s.sessions.CountActiveByMethod(ctx)
	return grouped, mapStorageError(err)
}

// RunSweeper expires stale sessions on the configured interval until the
// context is cancelled. A zero interval disables the sweeper.
func (s *SessionService) RunSweeper(ctx context.Context) {
	interval := configuration.Use().Session.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.ExpireStale(ctx)
			if err != nil {
				composables.UseLogger(ctx).WithError(err).Warn("session sweep failed")
				continue
			}
			if swept > 0 {
				composables.UseLogger(ctx).WithField("count", swept).Info("expired stale sessions")
			}
		}
	}
}
