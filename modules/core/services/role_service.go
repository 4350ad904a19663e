package services

import (
	"context"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/core/domain/aggregates/role"
	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
	"github.com/opswell/adminkit/modules/core/domain/entities/roleassignment"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/eventbus"
)

const rolesAuditModule = "roles_permissions"

// AuditRecorder receives audit facts about privileged mutations. Recording
// never fails from the caller's point of view.
type AuditRecorder interface {
	Record(ctx context.Context, event *auditevent.AuditEvent)
}

// RoleUpdate carries the full replacement state for a role; the permission
// set is synced, not merged.
type RoleUpdate struct {
	Name            string
	Slug            string
	Description     string
	PermissionSlugs []string
}

// PermissionDiff is the audit-facing outcome of a permission-set sync.
type PermissionDiff struct {
	Added   []string
	Removed []string
}

type RoleService struct {
	repo        role.Repository
	permissions permission.Repository
	assignments roleassignment.Repository
	publisher   eventbus.EventBus
	recorder    AuditRecorder
}

func NewRoleService(
	repo role.Repository,
	permissions permission.Repository,
	assignments roleassignment.Repository,
	publisher eventbus.EventBus,
	recorder AuditRecorder,
) *RoleService {
	return &RoleService{
		repo:        repo,
		permissions: permissions,
		assignments: assignments,
		publisher:   publisher,
		recorder:    recorder,
	}
}

func (s *RoleService) Count(ctx context.Context, params *role.FindParams) (int64, error) {
	return s.repo.Count(ctx, params)
}

func (s *RoleService) GetAll(ctx context.Context) ([]role.Role, error) {
	return s.repo.GetAll(ctx)
}

func (s *RoleService) GetByID(ctx context.Context, id uint) (role.Role, error) {
	entity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return entity, nil
}

func (s *RoleService) GetBySlug(ctx context.Context, slug string) (role.Role, error) {
	entity, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return entity, nil
}

func (s *RoleService) GetPaginated(ctx context.Context, params *role.FindParams) ([]role.Role, error) {
	return s.repo.GetPaginated(ctx, params)
}

func (s *RoleService) Permissions(ctx context.Context) ([]*permission.Permission, error) {
	return s.permissions.GetAll(ctx)
}

func (s *RoleService) Create(ctx context.Context, causerID uint, name string, update RoleUpdate) (role.Role, error) {
	createdRole, err := composables.InTxResult(ctx, func(txCtx context.Context) (role.Role, error) {
		perms, err := s.resolvePermissions(txCtx, update.PermissionSlugs)
		if err != nil {
			return nil, err
		}
		opts := []role.Option{
			role.WithDescription(update.Description),
			role.WithPermissions(perms),
		}
		if update.Slug != "" {
			opts = append(opts, role.WithSlug(update.Slug))
		}
		created, err := s.repo.Create(txCtx, role.New(name, opts...))
		if err != nil {
			return nil, mapStorageError(err)
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}

	event := role.NewCreatedEvent(ctx, causerID, createdRole)
	event.Result = createdRole
	s.publisher.Publish(event)

	s.recorder.Record(ctx, &auditevent.AuditEvent{
		Module:      rolesAuditModule,
		Submodule:   "roles",
		Action:      "role_created",
		Description: "created role " + createdRole.Name(),
		CauserID:    &causerID,
		SubjectType: "role",
		SubjectID:   formatUint(createdRole.ID()),
		Properties: map[string]any{
			"slug":        createdRole.Slug(),
			"permissions": createdRole.PermissionNames(),
		},
	})
	return createdRole, nil
}

// Update replaces the role's fields and permission set. The before state is
// read and the after state written inside one transaction so the returned
// diff can never reflect a concurrent writer's changes.
func (s *RoleService) Update(ctx context.Context, causerID uint, roleID uint, update RoleUpdate) (role.Role, PermissionDiff, error) {
	type outcome struct {
		updated role.Role
		diff    PermissionDiff
	}
	result, err := composables.InTxResult(ctx, func(txCtx context.Context) (outcome, error) {
		entity, err := s.repo.GetByID(txCtx, roleID)
		if err != nil {
			return outcome{}, mapStorageError(err)
		}
		if !entity.CanUpdate() {
			return outcome{}, ErrSystemRoleImmutable
		}

		perms, err := s.resolvePermissions(txCtx, update.PermissionSlugs)
		if err != nil {
			return outcome{}, err
		}

		before := entity.PermissionNames()
		next := entity.SetPermissions(perms)
		if update.Name != "" {
			next = next.SetName(update.Name)
		}
		if update.Slug != "" {
			next = next.SetSlug(update.Slug)
		}
		next = next.SetDescription(update.Description)

		updated, err := s.repo.Update(txCtx, next)
		if err != nil {
			return outcome{}, mapStorageError(err)
		}
		added, removed := diffNames(before, updated.PermissionNames())
		return outcome{updated: updated, diff: PermissionDiff{Added: added, Removed: removed}}, nil
	})
	if err != nil {
		return nil, PermissionDiff{}, err
	}

	event := role.NewUpdatedEvent(ctx, causerID, result.updated)
	event.Result = result.updated
	s.publisher.Publish(event)

	s.recorder.Record(ctx, &auditevent.AuditEvent{
		Module:      rolesAuditModule,
		Submodule:   "roles",
		Action:      "role_updated",
		Description: "updated role " + result.updated.Name(),
		CauserID:    &causerID,
		SubjectType: "role",
		SubjectID:   formatUint(result.updated.ID()),
		Properties: map[string]any{
			"permissions_added":   result.diff.Added,
			"permissions_removed": result.diff.Removed,
		},
	})
	return result.updated, result.diff, nil
}

func (s *RoleService) Delete(ctx context.Context, causerID uint, roleID uint) error {
	deleted, err := composables.InTxResult(ctx, func(txCtx context.Context) (role.Role, error) {
		entity, err := s.repo.GetByID(txCtx, roleID)
		if err != nil {
			return nil, mapStorageError(err)
		}
		if !entity.CanDelete() {
			return nil, ErrSystemRoleImmutable
		}
		// Assignments are jointly owned: deleting the role destroys them.
		if _, err := s.assignments.DeleteForRole(txCtx, roleID); err != nil {
			return nil, mapStorageError(err)
		}
		if err := s.repo.Delete(txCtx, roleID); err != nil {
			return nil, mapStorageError(err)
		}
		return entity, nil
	})
	if err != nil {
		return err
	}

	event := role.NewDeletedEvent(ctx, causerID)
	event.Result = deleted
	s.publisher.Publish(event)

	s.recorder.Record(ctx, &auditevent.AuditEvent{
		Module:      rolesAuditModule,
		Submodule:   "roles",
		Action:      "role_deleted",
		Description: "deleted role " + deleted.Name(),
		CauserID:    &causerID,
		SubjectType: "role",
		SubjectID:   formatUint(deleted.ID()),
	})
	return nil
}

func (s *RoleService) resolvePermissions(ctx context.Context, slugs []string) ([]*permission.Permission, error) {
	perms, err := s.permissions.GetBySlugs(ctx, slugs)
	if err != nil {
		return nil, mapStorageError(err)
	}
	if len(perms) != len(uniqueStrings(slugs)) {
		return nil, ErrPermissionNotFound
	}
	return perms, nil
}

func diffNames(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]struct{}, len(before))
	for _, name := range before {
		beforeSet[name] = struct{}{}
	}
	afterSet := make(map[string]struct{}, len(after))
	for _, name := range after {
		afterSet[name] = struct{}{}
	}
	added = []string{}
	removed = []string{}
	for _, name := range after {
		if _, ok := beforeSet[name]; !ok {
			added = append(added, name)
		}
	}
	for _, name := range before {
		if _, ok := afterSet[name]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
