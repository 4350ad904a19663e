package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

type AuditEvent struct {
	ID          int64
	Module      string
	Submodule   sql.NullString
	Action      string
	Description string
	CauserID    sql.NullInt64
	SubjectType sql.NullString
	SubjectID   sql.NullString
	Properties  json.RawMessage
	CreatedAt   time.Time
}

type LoginAudit struct {
	ID              int64
	UserID          sql.NullInt64
	TenantID        sql.NullString
	LoginMethod     string
	IPAddress       string
	UserAgent       string
	IsSuccessful    bool
	FailureReason   sql.NullString
	LoginAt         time.Time
	SessionDuration sql.NullInt64 // seconds
}

type ActiveSession struct {
	ID           string
	UserID       uint
	TenantID     sql.NullString
	LoginAuditID sql.NullInt64
	LoginMethod  string
	StartedAt    time.Time
	ExpiresAt    time.Time
	IsActive     bool
}
