package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/modules/audit/services"
	"github.com/opswell/adminkit/pkg/application"
	"github.com/opswell/adminkit/pkg/httpapi"
	"github.com/opswell/adminkit/pkg/shared"
)

// RecordLoginRequest is posted by the collaborating auth layer for every
// authentication attempt, successful or not.
type RecordLoginRequest struct {
	UserID        *uint  `json:"user_id"`
	TenantID      string `json:"tenant_id" validate:"omitempty,uuid"`
	LoginMethod   string `json:"login_method" validate:"required"`
	IPAddress     string `json:"ip_address"`
	UserAgent     string `json:"user_agent"`
	IsSuccessful  bool   `json:"is_successful"`
	FailureReason string `json:"failure_reason"`
}

type LoginAuditResponse struct {
	ID              int64   `json:"id"`
	UserID          *uint   `json:"user_id"`
	TenantID        *string `json:"tenant_id"`
	LoginMethod     string  `json:"login_method"`
	IPAddress       string  `json:"ip_address"`
	UserAgent       string  `json:"user_agent"`
	IsSuccessful    bool    `json:"is_successful"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	LoginAt         string  `json:"login_at"`
	SessionDuration *int64  `json:"session_duration_seconds"`
}

type LoginsController struct {
	app     application.Application
	service *services.LoginAuditService
	cleanup *services.CleanupService
	export  *services.ExportService
}

func NewLoginsController(app application.Application) application.Controller {
	return &LoginsController{
		app:     app,
		service: app.Service(services.LoginAuditService{}).(*services.LoginAuditService),
		cleanup: app.Service(services.CleanupService{}).(*services.CleanupService),
		export:  app.Service(services.ExportService{}).(*services.ExportService),
	}
}

func (c *LoginsController) Key() string {
	return "/login-audits"
}

func (c *LoginsController) Register(r *mux.Router) {
	r.HandleFunc("/login-audits", c.List).Methods(http.MethodGet)
	r.HandleFunc("/login-audits", c.Record).Methods(http.MethodPost)
	r.HandleFunc("/login-audits/export", c.Export).Methods(http.MethodGet)
	r.HandleFunc("/login-audits/cleanup", c.Cleanup).Methods(http.MethodPost)
}

func (c *LoginsController) List(w http.ResponseWriter, r *http.Request) {
	params, err := loginFindParams(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	entries, total, err := c.service.List(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"data":  mapLoginAudits(entries),
		"total": total,
	})
}

func (c *LoginsController) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordLoginRequest
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
	entry, err := c.service.RecordAttempt(r.Context(), services.RecordAttemptCommand{
		UserID:        req.UserID,
		TenantID:      tenantID,
		LoginMethod:   req.LoginMethod,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
		IsSuccessful:  req.IsSuccessful,
		FailureReason: req.FailureReason,
	})
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mapLoginAudit(entry))
}

func (c *LoginsController) Export(w http.ResponseWriter, r *http.Request) {
	params, err := loginFindParams(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	format, err := exportFormat(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_FORMAT", err.Error(), nil)
		return
	}
	filename := fmt.Sprintf("login-audit-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if _, err := c.export.ExportLoginAudits(r.Context(), w, params, format); err != nil {
		c.app.Logger().WithError(err).Error("login audit export aborted")
	}
}

// Cleanup purges aged login audits together with the inactive sessions they
// spawned, reporting both counts.
func (c *LoginsController) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	result, err := c.cleanup.Cleanup(r.Context(), req.Days)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, result)
}

func loginFindParams(r *http.Request) (*loginaudit.FindParams, error) {
	query := r.URL.Query()
	params := &loginaudit.FindParams{
		LoginMethod: query.Get("login_method"),
	}
	if raw := query.Get("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id %q", raw)
		}
		userID := uint(id)
		params.UserID = &userID
	}
	if raw := query.Get("tenant_id"); raw != "" {
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant_id %q", raw)
		}
		params.TenantID = &tenantID
	}
	if raw := query.Get("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid success %q", raw)
		}
		params.IsSuccessful = &success
	}
	if raw := query.Get("start_date"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		params.From = &from
	}
	if raw := query.Get("end_date"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		params.To = &to
	}
	if raw := query.Get("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid per_page %q", raw)
		}
		params.Limit = perPage
	}
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("invalid page %q", raw)
		}
		if params.Limit > 0 {
			params.Offset = (page - 1) * params.Limit
		}
	}
	return params, nil
}

func mapLoginAudit(entry *loginaudit.LoginAudit) *LoginAuditResponse {
	var tenantID *string
	if entry.TenantID != nil {
		value := entry.TenantID.String()
		tenantID = &value
	}
	var duration *int64
	if entry.SessionDuration != nil {
		seconds := int64(entry.SessionDuration.Seconds())
		duration = &seconds
	}
	return &LoginAuditResponse{
		ID:              entry.ID,
		UserID:          entry.UserID,
		TenantID:        tenantID,
		LoginMethod:     entry.LoginMethod,
		IPAddress:       entry.IPAddress,
		UserAgent:       entry.UserAgent,
		IsSuccessful:    entry.IsSuccessful,
		FailureReason:   entry.FailureReason,
		LoginAt:         entry.LoginAt.UTC().Format(time.RFC3339),
		SessionDuration: duration,
	}
}

func mapLoginAudits(entries []*loginaudit.LoginAudit) []*LoginAuditResponse {
	result := make([]*LoginAuditResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, mapLoginAudit(entry))
	}
	return result
}
