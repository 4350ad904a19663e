package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/modules/core/domain/aggregates/role"
	"github.com/opswell/adminkit/modules/core/domain/entities/tenant"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence"
)

func newAssignmentFixture(t *testing.T, assignments *fakeAssignmentRepo) (*RoleAssignmentService, *fakeRecorder) {
	t.Helper()
	editor := role.New("Editor", role.WithID(3))
	tenantID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	tenantEntity := tenant.New("Acme", tenant.WithID(tenantID))
	recorder := &fakeRecorder{}
	svc := NewRoleAssignmentService(
		newFakeRoleRepo(editor),
		assignments,
		&fakeTenantRepo{byID: map[uuid.UUID]*tenant.Tenant{tenantID: tenantEntity}},
		&fakeUserRepo{existing: map[uint]*user.User{7: {ID: 7, FirstName: "Ada", LastName: "Bell", Email: "ada@example.com"}}},
		&fakePublisher{},
		recorder,
	)
	return svc, recorder
}

func TestRoleAssignmentService_Assign_RecordsAuditWithScope(t *testing.T) {
	assignments := &fakeAssignmentRepo{}
	svc, recorder := newAssignmentFixture(t, assignments)
	tenantID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	created, err := svc.Assign(serviceContext(), 9, 7, "editor", &tenantID)
	require.NoError(t, err)
	require.Equal(t, uint(7), created.UserID)
	require.Equal(t, uint(3), created.RoleID)
	require.Equal(t, &tenantID, created.TenantID)

	require.Len(t, recorder.events, 1)
	event := recorder.events[0]
	require.Equal(t, "roles_permissions", event.Module)
	require.Equal(t, "role_assigned", event.Action)
	require.Equal(t, "user", event.SubjectType)
	require.Equal(t, "7", event.SubjectID)
	require.Equal(t, tenantID.String(), event.Properties["tenant_id"])
	require.Equal(t, "editor", event.Properties["role_slug"])
}

func TestRoleAssignmentService_Assign_GlobalScopeOmitsTenantProperty(t *testing.T) {
	assignments := &fakeAssignmentRepo{}
	svc, recorder := newAssignmentFixture(t, assignments)

	created, err := svc.Assign(serviceContext(), 9, 7, "editor", nil)
	require.NoError(t, err)
	require.Nil(t, created.TenantID)
	require.Len(t, recorder.events, 1)
	require.NotContains(t, recorder.events[0].Properties, "tenant_id")
}

func TestRoleAssignmentService_Assign_DuplicateLeavesNoAuditTrace(t *testing.T) {
	assignments := &fakeAssignmentRepo{createErr: persistence.ErrAssignmentExists}
	svc, recorder := newAssignmentFixture(t, assignments)

	_, err := svc.Assign(serviceContext(), 9, 7, "editor", nil)
	require.ErrorIs(t, err, ErrAlreadyAssigned)
	require.Empty(t, recorder.events)
}

func TestRoleAssignmentService_Assign_UnknownRole(t *testing.T) {
	svc, _ := newAssignmentFixture(t, &fakeAssignmentRepo{})
	_, err := svc.Assign(serviceContext(), 9, 7, "ghost", nil)
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRoleAssignmentService_Assign_UnknownUser(t *testing.T) {
	svc, _ := newAssignmentFixture(t, &fakeAssignmentRepo{})
	_, err := svc.Assign(serviceContext(), 9, 999, "editor", nil)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRoleAssignmentService_Assign_UnknownTenant(t *testing.T) {
	svc, _ := newAssignmentFixture(t, &fakeAssignmentRepo{})
	unknown := uuid.New()
	_, err := svc.Assign(serviceContext(), 9, 7, "editor", &unknown)
	require.ErrorIs(t, err, ErrTenantNotFound)
}

func TestRoleAssignmentService_Remove_NotAssigned(t *testing.T) {
	assignments := &fakeAssignmentRepo{deleteExisted: false}
	svc, recorder := newAssignmentFixture(t, assignments)

	err := svc.Remove(serviceContext(), 9, 7, "editor", nil)
	require.ErrorIs(t, err, ErrNotAssigned)
	require.Empty(t, recorder.events)
}

func TestRoleAssignmentService_Remove_RecordsAudit(t *testing.T) {
	assignments := &fakeAssignmentRepo{deleteExisted: true}
	svc, recorder := newAssignmentFixture(t, assignments)

	require.NoError(t, svc.Remove(serviceContext(), 9, 7, "editor", nil))
	require.Len(t, recorder.events, 1)
	require.Equal(t, "role_removed", recorder.events[0].Action)
}

func TestRoleAssignmentService_RemoveAllForUser(t *testing.T) {
	assignments := &fakeAssignmentRepo{removedCount: 3}
	svc, recorder := newAssignmentFixture(t, assignments)

	removed, err := svc.RemoveAllForUser(serviceContext(), 9, 7)
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)
	require.Equal(t, []uint{7}, assignments.deletedForUser)
	require.Len(t, recorder.events, 1)
	require.Equal(t, "assignments_cascaded", recorder.events[0].Action)
	require.Equal(t, int64(3), recorder.events[0].Properties["removed_count"])
}
