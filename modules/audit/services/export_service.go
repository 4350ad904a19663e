package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/modules/core/domain/entities/tenant"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
	"github.com/opswell/adminkit/pkg/configuration"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatXLSX ExportFormat = "xlsx"
)

var ErrUnsupportedFormat = fmt.Errorf("unsupported export format")

var auditExportHeader = []string{
	"ID", "Description", "Module", "Submodule", "User", "User Email",
	"Subject Type", "Subject ID", "IP Address", "User Agent", "Date", "Properties",
}

var loginExportHeader = []string{
	"Date/Time", "User Name", "User Email", "Tenant", "Login Method",
	"IP Address", "Success", "Session Duration (minutes)", "Failure Reason",
}

// ExportService streams filtered audit data as CSV, JSON, or XLSX. Rows are
// fetched and emitted page by page so memory stays bounded regardless of the
// result size; the total is capped at the configured export maximum.
type ExportService struct {
	events  auditevent.Repository
	logins  loginaudit.Repository
	users   user.Repository
	tenants tenant.Repository
}

func NewExportService(
	events auditevent.Repository,
	logins loginaudit.Repository,
	users user.Repository,
	tenants tenant.Repository,
) *ExportService {
	return &ExportService{
		events:  events,
		logins:  logins,
		users:   users,
		tenants: tenants,
	}
}

// ExportAuditEvents writes the filtered events to w and returns the emitted
// row count.
func (s *ExportService) ExportAuditEvents(ctx context.Context, w io.Writer, params *auditevent.FindParams, format ExportFormat) (int64, error) {
	emit, finish, err := newRowEmitter(w, format, "Audit Log", auditExportHeader)
	if err != nil {
		return 0, err
	}
	names := newNameResolver(s.users, s.tenants)

	var emitted int64
	err = s.forEachEventPage(ctx, params, func(events []*auditevent.AuditEvent) error {
		if err := names.primeCausers(ctx, events); err != nil {
			return err
		}
		for _, event := range events {
			userName, userEmail := names.causer(event.CauserID)
			if err := emit(auditEventRow(event, userName, userEmail)); err != nil {
				return err
			}
			emitted++
		}
		return nil
	})
	if err != nil {
		return emitted, mapStorageError(err)
	}
	return emitted, finish()
}

// ExportLoginAudits writes the filtered login attempts to w and returns the
// emitted row count.
func (s *ExportService) ExportLoginAudits(ctx context.Context, w io.Writer, params *loginaudit.FindParams, format ExportFormat) (int64, error) {
	emit, finish, err := newRowEmitter(w, format, "Login Audit", loginExportHeader)
	if err != nil {
		return 0, err
	}
	names := newNameResolver(s.users, s.tenants)

	var emitted int64
	err = s.forEachLoginPage(ctx, params, func(entries []*loginaudit.LoginAudit) error {
		if err := names.primeLogins(ctx, entries); err != nil {
			return err
		}
		for _, entry := range entries {
			userName, userEmail := names.causer(entry.UserID)
			tenantName, err := names.tenant(ctx, entry.TenantID)
			if err != nil {
				return err
			}
			if err := emit(loginAuditRow(entry, userName, userEmail, tenantName)); err != nil {
				return err
			}
			emitted++
		}
		return nil
	})
	if err != nil {
		return emitted, mapStorageError(err)
	}
	return emitted, finish()
}

func (s *ExportService) forEachEventPage(ctx context.Context, params *auditevent.FindParams, fn func([]*auditevent.AuditEvent) error) error {
	if params == nil {
		params = &auditevent.FindParams{}
	}
	cfg := configuration.Use()
	pageSize := cfg.MaxPageSize
	remaining := cfg.MaxExportRows
	offset := params.Offset
	for remaining > 0 {
		page := *params
		page.Offset = offset
		page.Limit = min(pageSize, remaining)
		events, err := s.events.List(ctx, &page)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		if err := fn(events); err != nil {
			return err
		}
		if len(events) < page.Limit {
			return nil
		}
		offset += len(events)
		remaining -= len(events)
	}
	return nil
}

func (s *ExportService) forEachLoginPage(ctx context.Context, params *loginaudit.FindParams, fn func([]*loginaudit.LoginAudit) error) error {
	if params == nil {
		params = &loginaudit.FindParams{}
	}
	cfg := configuration.Use()
	pageSize := cfg.MaxPageSize
	remaining := cfg.MaxExportRows
	offset := params.Offset
	for remaining > 0 {
		page := *params
		page.Offset = offset
		page.Limit = min(pageSize, remaining)
		entries, err := s.logins.List(ctx, &page)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		if err := fn(entries); err != nil {
			return err
		}
		if len(entries) < page.Limit {
			return nil
		}
		offset += len(entries)
		remaining -= len(entries)
	}
	return nil
}

func auditEventRow(event *auditevent.AuditEvent, userName, userEmail string) []string {
	properties := "{}"
	if len(event.Properties) > 0 {
		if encoded, err := json.Marshal(event.Properties); err == nil {
			properties = string(encoded)
		}
	}
	ip, _ := event.Properties["ip_address"].(string)
	userAgent, _ := event.Properties["user_agent"].(string)
	return []string{
		strconv.FormatInt(event.ID, 10),
		event.Description,
		event.Module,
		event.Submodule,
		userName,
		userEmail,
		event.SubjectType,
		event.SubjectID,
		ip,
		userAgent,
		event.CreatedAt.UTC().Format(time.RFC3339),
		properties,
	}
}

func loginAuditRow(entry *loginaudit.LoginAudit, userName, userEmail, tenantName string) []string {
	success := "No"
	if entry.IsSuccessful {
		success = "Yes"
	}
	duration := ""
	if entry.SessionDuration != nil {
		duration = strconv.FormatFloat(entry.SessionDuration.Minutes(), 'f', 1, 64)
	}
	return []string{
		entry.LoginAt.UTC().Format(time.RFC3339),
		userName,
		userEmail,
		tenantName,
		entry.LoginMethod,
		entry.IPAddress,
		success,
		duration,
		entry.FailureReason,
	}
}

// newRowEmitter returns an emit function that writes one row at a time and a
// finish function that flushes format-level trailers. Both CSV and JSON
// write-through to w; XLSX buffers inside excelize's stream writer, which
// spills to a temp file rather than memory.
func newRowEmitter(w io.Writer, format ExportFormat, sheet string, header []string) (func([]string) error, func() error, error) {
	switch format {
	case FormatCSV:
		writer := csv.NewWriter(w)
		if err := writer.Write(header); err != nil {
			return nil, nil, err
		}
		emit := func(row []string) error {
			return writer.Write(row)
		}
		finish := func() error {
			writer.Flush()
			return writer.Error()
		}
		return emit, finish, nil

	case FormatJSON:
		if _, err := io.WriteString(w, "["); err != nil {
			return nil, nil, err
		}
		first := true
		emit := func(row []string) error {
			if !first {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			first = false
			record := make(map[string]string, len(header))
			for i, key := range header {
				record[key] = row[i]
			}
			encoded, err := json.Marshal(record)
			if err != nil {
				return err
			}
			_, err = w.Write(encoded)
			return err
		}
		finish := func() error {
			_, err := io.WriteString(w, "]")
			return err
		}
		return emit, finish, nil

	case FormatXLSX:
		file := excelize.NewFile()
		if err := file.SetSheetName("Sheet1", sheet); err != nil {
			return nil, nil, err
		}
		stream, err := file.NewStreamWriter(sheet)
		if err != nil {
			return nil, nil, err
		}
		rowIndex := 1
		if err := stream.SetRow("A1", toCellValues(header)); err != nil {
			return nil, nil, err
		}
		emit := func(row []string) error {
			rowIndex++
			cell, err := excelize.CoordinatesToCellName(1, rowIndex)
			if err != nil {
				return err
			}
			return stream.SetRow(cell, toCellValues(row))
		}
		finish := func() error {
			if err := stream.Flush(); err != nil {
				return err
			}
			if err := file.Write(w); err != nil {
				return err
			}
			return file.Close()
		}
		return emit, finish, nil

	default:
		return nil, nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
}

func toCellValues(row []string) []interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return values
}

// nameResolver resolves dangling causer and tenant references at read time.
// Missing users render as "Unknown"; an absent causer is "System". Tenants
// are cached per export run.
type nameResolver struct {
	users   user.Repository
	tenants tenant.Repository

	userCache   map[uint]*user.User
	tenantCache map[string]string
}

func newNameResolver(users user.Repository, tenants tenant.Repository) *nameResolver {
	return &nameResolver{
		users:       users,
		tenants:     tenants,
		userCache:   make(map[uint]*user.User),
		tenantCache: make(map[string]string),
	}
}

func (r *nameResolver) primeCausers(ctx context.Context, events []*auditevent.AuditEvent) error {
	ids := make([]uint, 0, len(events))
	for _, event := range events {
		if event.CauserID != nil {
			ids = append(ids, *event.CauserID)
		}
	}
	return r.prime(ctx, ids)
}

func (r *nameResolver) primeLogins(ctx context.Context, entries []*loginaudit.LoginAudit) error {
	ids := make([]uint, 0, len(entries))
	for _, entry := range entries {
		if entry.UserID != nil {
			ids = append(ids, *entry.UserID)
		}
	}
	return r.prime(ctx, ids)
}

func (r *nameResolver) prime(ctx context.Context, ids []uint) error {
	missing := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.userCache[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	users, err := r.users.GetByIDs(ctx, missing)
	if err != nil {
		return err
	}
	for _, u := range users {
		r.userCache[u.ID] = u
	}
	return nil
}

func (r *nameResolver) causer(id *uint) (name, email string) {
	if id == nil {
		return "System", ""
	}
	if u, ok := r.userCache[*id]; ok {
		return u.FullName(), u.Email
	}
	return "Unknown", ""
}

func (r *nameResolver) tenant(ctx context.Context, id *uuid.UUID) (string, error) {
	if id == nil {
		return "", nil
	}
	key := id.String()
	if name, ok := r.tenantCache[key]; ok {
		return name, nil
	}
	t, err := r.tenants.GetByID(ctx, *id)
	if err != nil {
		// Tenants are deleted independently of the facts that reference
		// them; render the dangling reference rather than failing the export.
		r.tenantCache[key] = "Unknown"
		return "Unknown", nil
	}
	r.tenantCache[key] = t.Name()
	return t.Name(), nil
}
