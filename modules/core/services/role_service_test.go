package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/core/domain/aggregates/role"
	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
	"github.com/opswell/adminkit/modules/core/domain/entities/roleassignment"
	"github.com/opswell/adminkit/modules/core/domain/entities/tenant"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
	"github.com/opswell/adminkit/pkg/composables"
)

type fakeRoleRepo struct {
	byID   map[uint]role.Role
	bySlug map[string]role.Role

	created role.Role
	updated role.Role
	deleted []uint

	createErr error
}

func newFakeRoleRepo(roles ...role.Role) *fakeRoleRepo {
	repo := &fakeRoleRepo{byID: map[uint]role.Role{}, bySlug: map[string]role.Role{}}
	for _, r := range roles {
		repo.byID[r.ID()] = r
		repo.bySlug[r.Slug()] = r
	}
	return repo
}

func (f *fakeRoleRepo) GetAll(context.Context) ([]role.Role, error) { return nil, nil }
func (f *fakeRoleRepo) GetPaginated(context.Context, *role.FindParams) ([]role.Role, error) {
	return nil, nil
}
func (f *fakeRoleRepo) Count(context.Context, *role.FindParams) (int64, error) { return 0, nil }

func (f *fakeRoleRepo) GetByID(_ context.Context, id uint) (role.Role, error) {
	entity, ok := f.byID[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return entity, nil
}

func (f *fakeRoleRepo) GetBySlug(_ context.Context, slug string) (role.Role, error) {
	entity, ok := f.bySlug[slug]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return entity, nil
}

func (f *fakeRoleRepo) Create(_ context.Context, entity role.Role) (role.Role, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = entity
	return entity, nil
}

func (f *fakeRoleRepo) Update(_ context.Context, entity role.Role) (role.Role, error) {
	f.updated = entity
	return entity, nil
}

func (f *fakeRoleRepo) Delete(_ context.Context, id uint) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePermissionRepo struct {
	bySlug map[string]*permission.Permission
}

func newFakePermissionRepo(slugs ...string) *fakePermissionRepo {
	repo := &fakePermissionRepo{bySlug: map[string]*permission.Permission{}}
	for i, slug := range slugs {
		repo.bySlug[slug] = &permission.Permission{ID: uint(i + 1), Name: slug, Slug: slug}
	}
	return repo
}

func (f *fakePermissionRepo) GetAll(context.Context) ([]*permission.Permission, error) {
	return nil, nil
}

func (f *fakePermissionRepo) GetBySlugs(_ context.Context, slugs []string) ([]*permission.Permission, error) {
	var result []*permission.Permission
	for _, slug := range slugs {
		if p, ok := f.bySlug[slug]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePermissionRepo) Save(context.Context, *permission.Permission) error { return nil }

type fakeAssignmentRepo struct {
	created   []*roleassignment.RoleAssignment
	createErr error

	deleteExisted  bool
	deletedForRole []uint
	deletedForUser []uint
	removedCount   int64
}

func (f *fakeAssignmentRepo) List(context.Context, *roleassignment.FindParams) ([]*roleassignment.RoleAssignment, error) {
	return nil, nil
}

func (f *fakeAssignmentRepo) Count(context.Context, *roleassignment.FindParams) (int64, error) {
	return 0, nil
}

func (f *fakeAssignmentRepo) Create(_ context.Context, a *roleassignment.RoleAssignment) (*roleassignment.RoleAssignment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := *a
	created.ID = uint(len(f.created) + 1)
	f.created = append(f.created, &created)
	return &created, nil
}

func (f *fakeAssignmentRepo) Delete(context.Context, uint, uint, *uuid.UUID) (bool, error) {
	return f.deleteExisted, nil
}

func (f *fakeAssignmentRepo) DeleteForUser(_ context.Context, userID uint) (int64, error) {
	f.deletedForUser = append(f.deletedForUser, userID)
	return f.removedCount, nil
}

func (f *fakeAssignmentRepo) DeleteForRole(_ context.Context, roleID uint) (int64, error) {
	f.deletedForRole = append(f.deletedForRole, roleID)
	return f.removedCount, nil
}

type fakeTenantRepo struct {
	byID map[uuid.UUID]*tenant.Tenant
}

func (f *fakeTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	entity, ok := f.byID[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return entity, nil
}

func (f *fakeTenantRepo) GetByDomain(context.Context, string) (*tenant.Tenant, error) {
	return nil, ErrTenantNotFound
}
func (f *fakeTenantRepo) GetAll(context.Context) ([]*tenant.Tenant, error) { return nil, nil }
func (f *fakeTenantRepo) Create(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	return t, nil
}
func (f *fakeTenantRepo) Update(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	return t, nil
}

type fakeUserRepo struct {
	existing map[uint]*user.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (*user.User, error) {
	u, ok := f.existing[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, ids []uint) ([]*user.User, error) {
	var result []*user.User
	for _, id := range ids {
		if u, ok := f.existing[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

func (f *fakeUserRepo) Exists(_ context.Context, id uint) (bool, error) {
	_, ok := f.existing[id]
	return ok, nil
}

type fakeRecorder struct {
	events []*auditevent.AuditEvent
}

func (f *fakeRecorder) Record(_ context.Context, event *auditevent.AuditEvent) {
	f.events = append(f.events, event)
}

type fakePublisher struct {
	published []interface{}
}

func (f *fakePublisher) Publish(args ...interface{}) { f.published = append(f.published, args...) }
func (f *fakePublisher) Subscribe(interface{})       {}
func (f *fakePublisher) Unsubscribe(interface{})     {}
func (f *fakePublisher) Clear()                      {}
func (f *fakePublisher) SubscribersCount() int       { return 0 }

// serviceContext carries a no-op transaction so services join it instead of
// opening a real one.
func serviceContext() context.Context {
	return composables.WithTx(context.Background(), noopTx{})
}

type noopTx struct {
	pgx.Tx
}

func TestRoleService_Update_SystemRoleImmutable(t *testing.T) {
	system := role.New("Super Admin", role.WithID(1), role.WithSystem(true))
	repo := newFakeRoleRepo(system)
	recorder := &fakeRecorder{}
	svc := NewRoleService(repo, newFakePermissionRepo(), &fakeAssignmentRepo{}, &fakePublisher{}, recorder)

	_, _, err := svc.Update(serviceContext(), 9, 1, RoleUpdate{Name: "Renamed"})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)
	require.Nil(t, repo.updated)
	require.Empty(t, recorder.events)
}

func TestRoleService_Delete_SystemRoleImmutable(t *testing.T) {
	system := role.New("Super Admin", role.WithID(1), role.WithSystem(true))
	repo := newFakeRoleRepo(system)
	assignments := &fakeAssignmentRepo{}
	svc := NewRoleService(repo, newFakePermissionRepo(), assignments, &fakePublisher{}, &fakeRecorder{})

	err := svc.Delete(serviceContext(), 9, 1)
	require.ErrorIs(t, err, ErrSystemRoleImmutable)
	require.Empty(t, repo.deleted)
	require.Empty(t, assignments.deletedForRole)
}

func TestRoleService_Update_ComputesPermissionDiff(t *testing.T) {
	perms := newFakePermissionRepo("p1", "p2", "p3")
	initial, err := perms.GetBySlugs(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	entity := role.New("Editor", role.WithID(2), role.WithPermissions(initial))
	repo := newFakeRoleRepo(entity)
	recorder := &fakeRecorder{}
	svc := NewRoleService(repo, perms, &fakeAssignmentRepo{}, &fakePublisher{}, recorder)

	_, diff, err := svc.Update(serviceContext(), 9, 2, RoleUpdate{
		Name:            "Editor",
		PermissionSlugs: []string{"p2", "p3"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"p3"}, diff.Added)
	require.Equal(t, []string{"p1"}, diff.Removed)

	require.Len(t, recorder.events, 1)
	require.Equal(t, "role_updated", recorder.events[0].Action)
	require.Equal(t, []string{"p3"}, recorder.events[0].Properties["permissions_added"])
	require.Equal(t, []string{"p1"}, recorder.events[0].Properties["permissions_removed"])
}

func TestRoleService_Update_UnknownPermissionSlug(t *testing.T) {
	entity := role.New("Editor", role.WithID(2))
	svc := NewRoleService(newFakeRoleRepo(entity), newFakePermissionRepo("p1"), &fakeAssignmentRepo{}, &fakePublisher{}, &fakeRecorder{})

	_, _, err := svc.Update(serviceContext(), 9, 2, RoleUpdate{Name: "Editor", PermissionSlugs: []string{"p1", "ghost"}})
	require.ErrorIs(t, err, ErrPermissionNotFound)
}

func TestRoleService_Delete_CascadesAssignments(t *testing.T) {
	entity := role.New("Editor", role.WithID(2))
	repo := newFakeRoleRepo(entity)
	assignments := &fakeAssignmentRepo{}
	recorder := &fakeRecorder{}
	svc := NewRoleService(repo, newFakePermissionRepo(), assignments, &fakePublisher{}, recorder)

	require.NoError(t, svc.Delete(serviceContext(), 9, 2))
	require.Equal(t, []uint{2}, assignments.deletedForRole)
	require.Equal(t, []uint{2}, repo.deleted)
	require.Len(t, recorder.events, 1)
	require.Equal(t, "role_deleted", recorder.events[0].Action)
}
