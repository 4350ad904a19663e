package activesession

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActiveSession tracks one live session. The lifecycle is one-way: an active
// session is either terminated by an explicit logout or expired by the
// sweeper; neither state transitions back to active. Inactive rows are kept
// until retention cleanup deletes them.
type ActiveSession struct {
	ID           uuid.UUID
	UserID       uint
	TenantID     *uuid.UUID
	LoginAuditID *int64
	LoginMethod  string
	StartedAt    time.Time
	ExpiresAt    time.Time
	IsActive     bool
}

func (s *ActiveSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type FindParams struct {
	UserID      *uint
	TenantID    *uuid.UUID
	LoginMethod string
	Limit       int
	Offset      int
}

type Repository interface {
	Create(ctx context.Context, session *ActiveSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*ActiveSession, error)
	ListActive(ctx context.Context, params *FindParams) ([]*ActiveSession, error)
	CountActive(ctx context.Context, params *FindParams) (int64, error)
	CountActiveByMethod(ctx context.Context) (map[string]int64, error)
	// Deactivate marks the session inactive and reports whether it was
	// active. Already-inactive sessions are left untouched.
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
	// DeactivateExpired sweeps sessions whose expiry passed and returns
	// them so callers can close the linked login-audit facts.
	DeactivateExpired(ctx context.Context, now time.Time) ([]*ActiveSession, error)
	DeleteInactiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
