package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/audit/services"
	"github.com/opswell/adminkit/pkg/application"
	"github.com/opswell/adminkit/pkg/httpapi"
)

type AuditEventResponse struct {
	ID          int64          `json:"id"`
	Module      string         `json:"module"`
	Submodule   string         `json:"submodule,omitempty"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	CauserID    *uint          `json:"causer_id"`
	SubjectType string         `json:"subject_type,omitempty"`
	SubjectID   string         `json:"subject_id,omitempty"`
	Properties  map[string]any `json:"properties"`
	CreatedAt   string         `json:"created_at"`
}

type CleanupRequest struct {
	Days int `json:"days"`
}

type AuditController struct {
	app     application.Application
	service *services.AuditService
	export  *services.ExportService
}

func NewAuditController(app application.Application) application.Controller {
	return &AuditController{
		app:     app,
		service: app.Service(services.AuditService{}).(*services.AuditService),
		export:  app.Service(services.ExportService{}).(*services.ExportService),
	}
}

func (c *AuditController) Key() string {
	return "/audit-logs"
}

func (c *AuditController) Register(r *mux.Router) {
	r.HandleFunc("/audit-logs", c.List).Methods(http.MethodGet)
	r.HandleFunc("/audit-logs/stats", c.Statistics).Methods(http.MethodGet)
	r.HandleFunc("/audit-logs/export", c.Export).Methods(http.MethodGet)
	r.HandleFunc("/audit-logs/cleanup", c.Cleanup).Methods(http.MethodPost)
}

func (c *AuditController) List(w http.ResponseWriter, r *http.Request) {
	params, err := auditFindParams(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	events, total, err := c.service.Query(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"data":  mapAuditEvents(events),
		"total": total,
	})
}

func (c *AuditController) Statistics(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r, 30)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	stats, err := c.service.Statistics(r.Context(), from, to)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, stats)
}

// Export streams the filtered audit log as an attachment. Emission is
// page-by-page so arbitrarily large histories stay within the export cap
// without buffering the result set.
func (c *AuditController) Export(w http.ResponseWriter, r *http.Request) {
	params, err := auditFindParams(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	format, err := exportFormat(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_FORMAT", err.Error(), nil)
		return
	}
	filename := fmt.Sprintf("audit-log-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if _, err := c.export.ExportAuditEvents(r.Context(), w, params, format); err != nil {
		// Headers are already gone; all we can do is log and cut the stream.
		c.app.Logger().WithError(err).Error("audit export aborted")
	}
}

func (c *AuditController) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	deleted, err := c.service.Cleanup(r.Context(), req.Days)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"deleted_count": deleted})
}

func auditFindParams(r *http.Request) (*auditevent.FindParams, error) {
	query := r.URL.Query()
	params := &auditevent.FindParams{
		Module:      query.Get("module"),
		Submodule:   query.Get("submodule"),
		SubjectType: query.Get("subject_type"),
		SubjectID:   query.Get("subject_id"),
	}
	if raw := query.Get("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id %q", raw)
		}
		causerID := uint(id)
		params.CauserID = &causerID
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
		// End date is inclusive of the whole day.
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

func mapAuditEvents(events []*auditevent.AuditEvent) []*AuditEventResponse {
	result := make([]*AuditEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, &AuditEventResponse{
			ID:          event.ID,
			Module:      event.Module,
			Submodule:   event.Submodule,
			Action:      event.Action,
			Description: event.Description,
			CauserID:    event.CauserID,
			SubjectType: event.SubjectType,
			SubjectID:   event.SubjectID,
			Properties:  event.Properties,
			CreatedAt:   event.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func parseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return parsed.UTC(), nil
}

func dateRange(r *http.Request, defaultDays int) (time.Time, time.Time, error) {
	query := r.URL.Query()
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -defaultDays)
	to := now
	if raw := query.Get("start_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := query.Get("end_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, nil
}

func exportFormat(r *http.Request) (services.ExportFormat, error) {
	raw := r.URL.Query().Get("format")
	switch services.ExportFormat(raw) {
	case "":
		return services.FormatCSV, nil
	case services.FormatCSV, services.FormatJSON, services.FormatXLSX:
		return services.ExportFormat(raw), nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

func contentTypeFor(format services.ExportFormat) string {
	switch format {
	case services.FormatJSON:
		return "application/json"
	case services.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}
