package core

import (
	auditservices "github.com/opswell/adminkit/modules/audit/services"
	"github.com/opswell/adminkit/modules/core/infrastructure/persistence"
	"github.com/opswell/adminkit/modules/core/presentation/controllers"
	"github.com/opswell/adminkit/modules/core/services"
	"github.com/opswell/adminkit/pkg/application"
)

type Module struct{}

func NewModule() *Module {
	return &Module{}
}

func (m *Module) Register(app application.Application) error {
	roles := persistence.NewRoleRepository()
	permissions := persistence.NewPermissionRepository()
	assignments := persistence.NewRoleAssignmentRepository()
	tenants := persistence.NewTenantRepository()
	users := persistence.NewUserRepository()

	recorder := app.Service(auditservices.AuditService{}).(*auditservices.AuditService)

	app.RegisterServices(
		services.NewRoleService(roles, permissions, assignments, app.EventPublisher(), recorder),
		services.NewRoleAssignmentService(roles, assignments, tenants, users, app.EventPublisher(), recorder),
	)
	app.RegisterControllers(
		controllers.NewRolesController(app),
		controllers.NewUserRolesController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
