package persistence

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/modules/audit/infrastructure/persistence/models"
)

func toDomainAuditEvent(dbRow *models.AuditEvent) (*auditevent.AuditEvent, error) {
	var properties map[string]any
	if len(dbRow.Properties) > 0 {
		if err := json.Unmarshal(dbRow.Properties, &properties); err != nil {
			return nil, errors.Wrap(err, "failed to decode audit properties")
		}
	}
	var causerID *uint
	if dbRow.CauserID.Valid {
		v := uint(dbRow.CauserID.Int64)
		causerID = &v
	}
	return &auditevent.AuditEvent{
		ID:          dbRow.ID,
		Module:      dbRow.Module,
		Submodule:   dbRow.Submodule.String,
		Action:      dbRow.Action,
		Description: dbRow.Description,
		CauserID:    causerID,
		SubjectType: dbRow.SubjectType.String,
		SubjectID:   dbRow.SubjectID.String,
		Properties:  properties,
		CreatedAt:   dbRow.CreatedAt,
	}, nil
}

func toDBAuditEvent(event *auditevent.AuditEvent) (*models.AuditEvent, error) {
	properties := json.RawMessage("{}")
	if len(event.Properties) > 0 {
		encoded, err := json.Marshal(event.Properties)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode audit properties")
		}
		properties = encoded
	}
	var causerID sql.NullInt64
	if event.CauserID != nil {
		causerID = sql.NullInt64{Int64: int64(*event.CauserID), Valid: true}
	}
	return &models.AuditEvent{
		ID:          event.ID,
		Module:      event.Module,
		Submodule:   sql.NullString{String: event.Submodule, Valid: event.Submodule != ""},
		Action:      event.Action,
		Description: event.Description,
		CauserID:    causerID,
		SubjectType: sql.NullString{String: event.SubjectType, Valid: event.SubjectType != ""},
		SubjectID:   sql.NullString{String: event.SubjectID, Valid: event.SubjectID != ""},
		Properties:  properties,
		CreatedAt:   event.CreatedAt,
	}, nil
}

func toDomainLoginAudit(dbRow *models.LoginAudit) (*loginaudit.LoginAudit, error) {
	var userID *uint
	if dbRow.UserID.Valid {
		v := uint(dbRow.UserID.Int64)
		userID = &v
	}
	var tenantID *uuid.UUID
	if dbRow.TenantID.Valid {
		parsed, err := uuid.Parse(dbRow.TenantID.String)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse login audit tenant id")
		}
		tenantID = &parsed
	}
	var duration *time.Duration
	if dbRow.SessionDuration.Valid {
		d := time.Duration(dbRow.SessionDuration.Int64) * time.Second
		duration = &d
	}
	return &loginaudit.LoginAudit{
		ID:              dbRow.ID,
		UserID:          userID,
		TenantID:        tenantID,
		LoginMethod:     dbRow.LoginMethod,
		IPAddress:       dbRow.IPAddress,
		UserAgent:       dbRow.UserAgent,
		IsSuccessful:    dbRow.IsSuccessful,
		FailureReason:   dbRow.FailureReason.String,
		LoginAt:         dbRow.LoginAt,
		SessionDuration: duration,
	}, nil
}

func toDomainActiveSession(dbRow *models.ActiveSession) (*activesession.ActiveSession, error) {
	id, err := uuid.Parse(dbRow.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse session id")
	}
	var tenantID *uuid.UUID
	if dbRow.TenantID.Valid {
		parsed, err := uuid.Parse(dbRow.TenantID.String)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse session tenant id")
		}
		tenantID = &parsed
	}
	var loginAuditID *int64
	if dbRow.LoginAuditID.Valid {
		v := dbRow.LoginAuditID.Int64
		loginAuditID = &v
	}
	return &activesession.ActiveSession{
		ID:           id,
		UserID:       dbRow.UserID,
		TenantID:     tenantID,
		LoginAuditID: loginAuditID,
		LoginMethod:  dbRow.LoginMethod,
		StartedAt:    dbRow.StartedAt,
		ExpiresAt:    dbRow.ExpiresAt,
		IsActive:     dbRow.IsActive,
	}, nil
}
