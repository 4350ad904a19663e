package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/opswell/adminkit/modules/audit/services"
	"github.com/opswell/adminkit/pkg/application"
	"github.com/opswell/adminkit/pkg/httpapi"
)

type AnalyticsController struct {
	app       application.Application
	analytics *services.AnalyticsService
	logins    *services.LoginAuditService
}

func NewAnalyticsController(app application.Application) application.Controller {
	return &AnalyticsController{
		app:       app,
		analytics: app.Service(services.AnalyticsService{}).(*services.AnalyticsService),
		logins:    app.Service(services.LoginAuditService{}).(*services.LoginAuditService),
	}
}

func (c *AnalyticsController) Key() string {
	return "/analytics"
}

func (c *AnalyticsController) Register(r *mux.Router) {
	r.HandleFunc("/analytics/dashboard", c.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/analytics/trends", c.Trends).Methods(http.MethodGet)
	r.HandleFunc("/analytics/hourly", c.Hourly).Methods(http.MethodGet)
	r.HandleFunc("/analytics/failed-attempts", c.FailedAttempts).Methods(http.MethodGet)
	r.HandleFunc("/analytics/recent-activity", c.RecentActivity).Methods(http.MethodGet)
	r.HandleFunc("/analytics/users/{id:[0-9]+}/timeline", c.UserTimeline).Methods(http.MethodGet)
	r.HandleFunc("/analytics/tenants/{id}", c.TenantRollup).Methods(http.MethodGet)
}

func (c *AnalyticsController) Dashboard(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	stats, err := c.analytics.DashboardStats(r.Context(), days)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, stats)
}

// Trends returns the dense daily successful-login series: exactly `days`
// entries, ascending, zero-filled.
func (c *AnalyticsController) Trends(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	series, err := c.logins.Trends(r.Context(), days)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"data": series})
}

// Hourly returns the 24-bucket login histogram, all hours present.
func (c *AnalyticsController) Hourly(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	series, err := c.logins.HourlyDistribution(r.Context(), days)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"data": series})
}

func (c *AnalyticsController) FailedAttempts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	entries, err := c.logins.FailedAttempts(r.Context(), limit)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"data": mapLoginAudits(entries)})
}

func (c *AnalyticsController) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	entries, err := c.logins.RecentActivity(r.Context(), limit)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"data": mapLoginAudits(entries)})
}

func (c *AnalyticsController) UserTimeline(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid user id", nil)
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	timeline, err := c.analytics.UserTimeline(r.Context(), uint(id), limit)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"data": timeline})
}

func (c *AnalyticsController) TenantRollup(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid tenant id", nil)
		return
	}
	rollup, err := c.analytics.TenantRollup(r.Context(), tenantID)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rollup)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}
