package services

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/opswell/adminkit/modules/audit/domain/entities/auditevent"
	"github.com/opswell/adminkit/modules/core/domain/aggregates/role"
	"github.com/opswell/adminkit/modules/core/domain/entities/roleassignment"
	"github.com/opswell/adminkit/modules/core/domain/entities/tenant"
	"github.com/opswell/adminkit/modules/core/domain/entities/user"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/eventbus"
)

// RoleAssignmentService owns user-role bindings. The (user, role, scope)
// triple is the atomic unit everywhere: the same role held globally and
// within a tenant are independent bindings.
type RoleAssignmentService struct {
	roles       role.Repository
	assignments roleassignment.Repository
	tenants     tenant.Repository
	users       user.Repository
	publisher   eventbus.EventBus
	recorder    AuditRecorder
}

func NewRoleAssignmentService(
	roles role.Repository,
	assignments roleassignment.Repository,
	tenants tenant.Repository,
	users user.Repository,
	publisher eventbus.EventBus,
	recorder AuditRecorder,
) *RoleAssignmentService {
	return &RoleAssignmentService{
		roles:       roles,
		assignments: assignments,
		tenants:     tenants,
		users:       users,
		publisher:   publisher,
		recorder:    recorder,
	}
}

func (s *RoleAssignmentService) List(ctx context.Context, params *roleassignment.FindParams) ([]*roleassignment.RoleAssignment, error) {
	return s.assignments.List(ctx, params)
}

func (s *RoleAssignmentService) Count(ctx context.Context, params *roleassignment.FindParams) (int64, error) {
	return s.assignments.Count(ctx, params)
}

// Assign binds the role to the user in the given scope. Duplicate requests
// for the same triple are decided by the storage unique constraint: under
// concurrency exactly one caller succeeds, the rest observe ErrAlreadyAssigned.
func (s *RoleAssignmentService) Assign(ctx context.Context, causerID uint, userID uint, roleSlug string, tenantID *uuid.UUID) (*roleassignment.RoleAssignment, error) {
	assignment, err := composables.InTxResult(ctx, func(txCtx context.Context) (*roleassignment.RoleAssignment, error) {
		roleEntity, err := s.roles.GetBySlug(txCtx, roleSlug)
		if err != nil {
			return nil, mapStorageError(err)
		}
		exists, err := s.users.Exists(txCtx, userID)
		if err != nil {
			return nil, mapStorageError(err)
		}
		if !exists {
			return nil, ErrUserNotFound
		}
		if tenantID != nil {
			// A deactivated tenant still accepts assignments; the binding
			// stays present but is non-authoritative for permission checks
			// until the tenant is reactivated.
			if _, err := s.tenants.GetByID(txCtx, *tenantID); err != nil {
				return nil, mapStorageError(err)
			}
		}
		created, err := s.assignments.Create(txCtx, &roleassignment.RoleAssignment{
			UserID:   userID,
			RoleID:   roleEntity.ID(),
			TenantID: tenantID,
		})
		if err != nil {
			return nil, mapStorageError(err)
		}
		return created, nil
	})
	if err != nil {
		// A rejected duplicate is not a mutation and leaves no audit trace.
		return nil, err
	}

	s.publisher.Publish(&roleassignment.AssignedEvent{CauserID: causerID, Result: assignment})

	s.recorder.Record(ctx, &auditevent.AuditEvent{
		Module:      rolesAuditModule,
		Submodule:   "assignments",
		Action:      "role_assigned",
		Description: "assigned role " + roleSlug,
		CauserID:    &causerID,
		SubjectType: "user",
		SubjectID:   strconv.FormatUint(uint64(userID), 10),
		Properties:  assignmentProperties(roleSlug, tenantID),
	})
	return assignment, nil
}

// Remove unbinds the exact triple. Removing an absent binding reports
// ErrNotAssigned rather than success so callers can audit precisely.
func (s *RoleAssignmentService) Remove(ctx context.Context, causerID uint, userID uint, roleSlug string, tenantID *uuid.UUID) error {
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		roleEntity, err := s.roles.GetBySlug(txCtx, roleSlug)
		if err != nil {
			return mapStorageError(err)
		}
		existed, err := s.assignments.Delete(txCtx, userID, roleEntity.ID(), tenantID)
		if err != nil {
			return mapStorageError(err)
		}
		if !existed {
			return ErrNotAssigned
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(&roleassignment.RemovedEvent{CauserID: causerID, Result: &roleassignment.RoleAssignment{
		UserID:   userID,
		TenantID: tenantID,
	}})

	s.recorder.Record(ctx, &auditevent.AuditEvent{
		Module:      rolesAuditModule,
		Submodule:   "assignments",
		Action:      "role_removed",
		Description: "removed role " + roleSlug,
		CauserID:    &causerID,
		SubjectType: "user",
		SubjectID:   strconv.FormatUint(uint64(userID), 10),
		Properties:  assignmentProperties(roleSlug, tenantID),
	})
	return nil
}

// RemoveAllForUser cascades a user deletion from the identity system.
func (s *RoleAssignmentService) RemoveAllForUser(ctx context.Context, causerID uint, userID uint) (int64, error) {
	removed, err := composables.InTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.assignments.DeleteForUser(txCtx, userID)
	})
	if err != nil {
		return 0, mapStorageError(err)
	}
	if removed > 0 {
		s.recorder.Record(ctx, &auditevent.AuditEvent{
			Module:      rolesAuditModule,
			Submodule:   "assignments",
			Action:      "assignments_cascaded",
			Description: "removed all role assignments for user",
			CauserID:    &causerID,
			SubjectType: "user",
			SubjectID:   strconv.FormatUint(uint64(userID), 10),
			Properties:  map[string]any{"removed_count": removed},
		})
	}
	return removed, nil
}

func assignmentProperties(roleSlug string, tenantID *uuid.UUID) map[string]any {
	props := map[string]any{"role_slug": roleSlug}
	if tenantID != nil {
		props["tenant_id"] = tenantID.String()
	}
	return props
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
