package auditevent

import (
	"context"
	"time"
)

// AuditEvent is an append-only record of a privileged action. Events are
// historical facts: they outlive their causer and subject, whose references
// may dangle and are resolved to "Unknown"/"System" at read time.
type AuditEvent struct {
	ID          int64
	Module      string
	Submodule   string
	Action      string
	Description string
	CauserID    *uint
	SubjectType string
	SubjectID   string
	// Properties is a schema-less but JSON-serializable bag of extra facts
	// (string keys only).
	Properties map[string]any
	CreatedAt  time.Time
}

type FindParams struct {
	Module      string
	Submodule   string
	CauserID    *uint
	SubjectType string
	SubjectID   string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// CauserCount is one entry of the top-causers ranking.
type CauserCount struct {
	CauserID uint
	Count    int64
}

type Repository interface {
	Create(ctx context.Context, event *AuditEvent) error
	List(ctx context.Context, params *FindParams) ([]*AuditEvent, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	CountsByModule(ctx context.Context, from, to time.Time) (map[string]int64, error)
	CountsBySubmodule(ctx context.Context, from, to time.Time) (map[string]int64, error)
	TopCausers(ctx context.Context, from, to time.Time, limit int) ([]CauserCount, error)
	// DailyCounts returns per-day totals keyed by UTC date (midnight). Days
	// without events are absent; dense filling is the service's job.
	DailyCounts(ctx context.Context, from, to time.Time) (map[time.Time]int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
