package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/opswell/adminkit/modules/audit/domain/entities/activesession"
	"github.com/opswell/adminkit/modules/audit/services"
	"github.com/opswell/adminkit/pkg/application"
	"github.com/opswell/adminkit/pkg/httpapi"
	"github.com/opswell/adminkit/pkg/shared"
)

// StartSessionRequest is posted by the auth layer after a successful login.
type StartSessionRequest struct {
	UserID       uint   `json:"user_id" validate:"required"`
	TenantID     string `json:"tenant_id" validate:"omitempty,uuid"`
	LoginAuditID *int64 `json:"login_audit_id"`
	LoginMethod  string `json:"login_method" validate:"required"`
	ExpiresAt    string `json:"expires_at" validate:"omitempty"`
}

type SessionResponse struct {
	ID           string  `json:"id"`
	UserID       uint    `json:"user_id"`
	TenantID     *string `json:"tenant_id"`
	LoginMethod  string  `json:"login_method"`
	StartedAt    string  `json:"started_at"`
	ExpiresAt    string  `json:"expires_at"`
	IsActive     bool    `json:"is_active"`
	LoginAuditID *int64  `json:"login_audit_id"`
}

type SessionsController struct {
	app     application.Application
	service *services.SessionService
}

func NewSessionsController(app application.Application) application.Controller {
	return &SessionsController{
		app:     app,
		service: app.Service(services.SessionService{}).(*services.SessionService),
	}
}

func (c *SessionsController) Key() string {
	return "/sessions"
}

func (c *SessionsController) Register(r *mux.Router) {
	r.HandleFunc("/sessions", c.ListActive).Methods(http.MethodGet)
	r.HandleFunc("/sessions", c.Start).Methods(http.MethodPost)
	r.HandleFunc("/sessions/by-method", c.GroupedByMethod).Methods(http.MethodGet)
	r.HandleFunc("/sessions/expire-stale", c.ExpireStale).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", c.Terminate).Methods(http.MethodDelete)
}

// ListActive answers "who is online now".
func (c *SessionsController) ListActive(w http.ResponseWriter, r *http.Request) {
	params := &activesession.FindParams{}
	query := r.URL.Query()
	if raw := query.Get("tenant_id"); raw != "" {
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_TENANT_ID", "invalid tenant id", nil)
			return
		}
		params.TenantID = &tenantID
	}
	params.LoginMethod = query.Get("login_method")

	sessions, err := c.service.ActiveSessions(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	total, err := c.service.CountActive(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"data":  mapSessions(sessions),
		"total": total,
	})
}

func (c *SessionsController) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := shared.Validate.Struct(&req); err != nil {
		_ = httpapi.WriteValidationErrors(w, shared.FieldErrors(err))
		return
	}
	var tenantID *uuid.UUID
	if req.TenantID != "" {
		parsed, err := uuid.Parse(req.TenantID)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_TENANT_ID", "invalid tenant id", nil)
			return
		}
		tenantID = &parsed
	}
	var expiresAt time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_EXPIRY", "invalid expires_at, expected RFC3339", nil)
			return
		}
		expiresAt = parsed
	}
	session, err := c.service.Start(r.Context(), services.StartSessionCommand{
		UserID:       req.UserID,
		TenantID:     tenantID,
		LoginAuditID: req.LoginAuditID,
		LoginMethod:  req.LoginMethod,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mapSession(session))
}

func (c *SessionsController) Terminate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid session id", nil)
		return
	}
	if err := c.service.Terminate(r.Context(), id); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"terminated": true})
}

func (c *SessionsController) GroupedByMethod(w http.ResponseWriter, r *http.Request) {
	grouped, err := c.service.GroupedByMethod(r.Context())
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"data": grouped})
}

// ExpireStale triggers the sweep on demand, independent of the background
// sweeper.
func (c *SessionsController) ExpireStale(w http.ResponseWriter, r *http.Request) {
	swept, err := c.service.ExpireStale(r.Context())
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"expired_count": swept})
}

func mapSession(session *activesession.ActiveSession) *SessionResponse {
	var tenantID *string
	if session.TenantID != nil {
		value := session.TenantID.String()
		tenantID = &value
	}
	return &SessionResponse{
		ID:           session.ID.String(),
		UserID:       session.UserID,
		TenantID:     tenantID,
		LoginMethod:  session.LoginMethod,
		StartedAt:    session.StartedAt.UTC().Format(time.RFC3339),
		ExpiresAt:    session.ExpiresAt.UTC().Format(time.RFC3339),
		IsActive:     session.IsActive,
		LoginAuditID: session.LoginAuditID,
	}
}

func mapSessions(sessions []*activesession.ActiveSession) []*SessionResponse {
	result := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, mapSession(session))
	}
	return result
}
