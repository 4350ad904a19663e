package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/audit/domain/entities/loginaudit"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
)

// countingWriter tracks the largest single write so tests can assert the
// export emits row-sized chunks instead of buffering the result set.
type countingWriter struct {
	bytes.Buffer
	maxChunk int
	writes   int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	if len(p) > w.maxChunk {
		w.maxChunk = len(p)
	}
	w.writes++
	return w.Buffer.Write(p)
}

func seedEvents(n int) *fakeEventRepo {
	repo := &fakeEventRepo{}
	causerID := uint(7)
	for i := 0; i < n; i++ {
		repo.events = append(repo.events, &auditevent.AuditEvent{
			ID:          int64(i + 1),
			Module:      "roles_permissions",
			Submodule:   "assignments",
			Action:      "role_assigned",
			Description: fmt.Sprintf("assigned role %d", i),
			CauserID:    &causerID,
			SubjectType: "user",
			SubjectID:   "42",
			Properties:  map[string]any{"ip_address": "203.0.113.9", "user_agent": "agent/1.0"},
			CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		})
	}
	return repo
}

func exportFixture(events *fakeEventRepo) *ExportService {
	users := &fakeUserRepo{existing: map[uint]*user.User{
		7: {ID: 7, FirstName: "Ada", LastName: "Bell", Email: "ada@example.com"},
	}}
	return NewExportService(events, &fakeLoginRepo{}, users, &fakeTenantRepo{})
}

func TestExportService_CSVHeaderOrder(t *testing.T) {
	var buf bytes.Buffer
	svc := exportFixture(seedEvents(1))

	emitted, err := svc.ExportAuditEvents(serviceContext(), &buf, nil, FormatCSV)
	require.NoError(t, err)
	require.Equal(t, int64(1), emitted)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{
		"ID", "Description", "Module", "Submodule", "User", "User Email",
		"Subject Type", "Subject ID", "IP Address", "User Agent", "Date", "Properties",
	}, records[0])

	row := records[1]
	require.Equal(t, "1", row[0])
	require.Equal(t, "Ada Bell", row[4])
	require.Equal(t, "ada@example.com", row[5])
	require.Equal(t, "203.0.113.9", row[8])
	require.Equal(t, "agent/1.0", row[9])
}

func TestExportService_StreamsLargeResultInPages(t *testing.T) {
	events := seedEvents(12000)
	svc := exportFixture(events)
	writer := &countingWriter{}

	emitted, err := svc.ExportAuditEvents(serviceContext(), writer, nil, FormatCSV)
	require.NoError(t, err)
	// The export cap bounds the emission, not the source size.
	require.Equal(t, int64(10000), emitted)

	records, err := csv.NewReader(strings.NewReader(writer.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 10001, "header plus capped rows")

	// Pages, not one unbounded query.
	require.Len(t, events.listCalls, 20)
	for _, call := range events.listCalls {
		require.Equal(t, 500, call.Limit)
	}
	require.Equal(t, 9500, events.listCalls[19].Offset)

	// Bounded memory: the csv writer flushes through a fixed-size buffer,
	// so no single write grows with the result set.
	require.LessOrEqual(t, writer.maxChunk, 4096)
	require.Greater(t, writer.writes, 1)
}

func TestExportService_EmitsEveryRowWhenUnderCap(t *testing.T) {
	events := seedEvents(1200)
	svc := exportFixture(events)
	var buf bytes.Buffer

	emitted, err := svc.ExportAuditEvents(serviceContext(), &buf, nil, FormatCSV)
	require.NoError(t, err)
	total, err := events.Count(serviceContext(), &auditevent.FindParams{})
	require.NoError(t, err)
	require.Equal(t, total, emitted)
}

func TestExportService_JSONIsValidArray(t *testing.T) {
	svc := exportFixture(seedEvents(3))
	var buf bytes.Buffer

	emitted, err := svc.ExportAuditEvents(serviceContext(), &buf, nil, FormatJSON)
	require.NoError(t, err)
	require.Equal(t, int64(3), emitted)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	require.Equal(t, "Ada Bell", rows[0]["User"])
}

func TestExportService_ResolvesDanglingCausers(t *testing.T) {
	ghost := uint(999)
	events := &fakeEventRepo{events: []*auditevent.AuditEvent{
		{ID: 1, Module: "m", Action: "a", CauserID: &ghost, CreatedAt: time.Now()},
		{ID: 2, Module: "m", Action: "a", CauserID: nil, CreatedAt: time.Now()},
	}}
	svc := exportFixture(events)
	var buf bytes.Buffer

	_, err := svc.ExportAuditEvents(serviceContext(), &buf, nil, FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, "Unknown", records[1][4], "deleted causer resolves to Unknown")
	require.Equal(t, "System", records[2][4], "absent causer resolves to System")
}

func TestExportService_LoginCSVHeaderAndDuration(t *testing.T) {
	userID := uint(7)
	duration := 45 * time.Minute
	logins := &fakeLoginRepo{entries: []*loginaudit.LoginAudit{{
		ID:              1,
		UserID:          &userID,
		LoginMethod:     "password",
		IPAddress:       "203.0.113.9",
		IsSuccessful:    true,
		LoginAt:         time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC),
		SessionDuration: &duration,
	}}}
	users := &fakeUserRepo{existing: map[uint]*user.User{
		7: {ID: 7, FirstName: "Ada", LastName: "Bell", Email: "ada@example.com"},
	}}
	svc := NewExportService(&fakeEventRepo{}, logins, users, &fakeTenantRepo{})
	var buf bytes.Buffer

	emitted, err := svc.ExportLoginAudits(serviceContext(), &buf, nil, FormatCSV)
	require.NoError(t, err)
	require.Equal(t, int64(1), emitted)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{
		"Date/Time", "User Name", "User Email", "Tenant", "Login Method",
		"IP Address", "Success", "Session Duration (minutes)", "Failure Reason",
	}, records[0])
	require.Equal(t, "Yes", records[1][6])
	require.Equal(t, "45.0", records[1][7])
}

func TestExportService_UnsupportedFormat(t *testing.T) {
	svc := exportFixture(seedEvents(1))
	var buf bytes.Buffer
	_, err := svc.ExportAuditEvents(serviceContext(), &buf, nil, ExportFormat("pdf"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
