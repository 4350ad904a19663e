package loginaudit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LoginAudit is an append-only record of one authentication attempt. Failed
// attempts keep their failure reason; successful ones gain a session
// duration once the matching session ends.
type LoginAudit struct {
	ID              int64
	UserID          *uint
	TenantID        *uuid.UUID
	LoginMethod     string
	IPAddress       string
	UserAgent       string
	IsSuccessful    bool
	FailureReason   string
	LoginAt         time.Time
	SessionDuration *time.Duration
}

type FindParams struct {
	UserID       *uint
	TenantID     *uuid.UUID
	LoginMethod  string
	IsSuccessful *bool
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

type Repository interface {
	Create(ctx context.Context, log *LoginAudit) error
	List(ctx context.Context, params *FindParams) ([]*LoginAudit, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// DailySuccessCounts returns successful-login totals keyed by UTC date.
	// Sparse; the service produces the dense series.
	DailySuccessCounts(ctx context.Context, from, to time.Time) (map[time.Time]int64, error)
	// HourlyCounts returns login totals keyed by hour of day (0-23) since
	// the given time.
	HourlyCounts(ctx context.Context, since time.Time) (map[int]int64, error)
	SetSessionDuration(ctx context.Context, id int64, duration time.Duration) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
