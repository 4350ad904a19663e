package audit

import (
	"github.com/opswell/adminkit/modules/audit/infrastructure/persistence"
	"github.com/opswell/adminkit/modules/audit/presentation/controllers"
	"github.com/opswell/adminkit/modules/audit/services"
	corepersistence "github.com/opswell/adminkit/modules/core/infrastructure/persistence"
	"github.com/opswell/adminkit/pkg/application"
)

type Module struct{}

func NewModule() *Module {
	return &Module{}
}

// Register wires the audit stores, services, and controllers. The audit
// module must be registered before core so core's services can pick up the
// audit recorder.
func (m *Module) Register(app application.Application) error {
	events := persistence.NewAuditEventRepository()
	logins := persistence.NewLoginAuditRepository()
	sessions := persistence.NewActiveSessionRepository()
	users := corepersistence.NewUserRepository()
	tenants := corepersistence.NewTenantRepository()

	app.RegisterServices(
		services.NewAuditService(events, app.EventPublisher()),
		services.NewLoginAuditService(logins, app.EventPublisher()),
		services.NewSessionService(sessions, logins, app.EventPublisher()),
		services.NewCleanupService(logins, sessions),
		services.NewAnalyticsService(events, logins, sessions, users),
		services.NewExportService(events, logins, users, tenants),
	)
	app.RegisterControllers(
		controllers.NewAuditController(app),
		controllers.NewLoginsController(app),
		controllers.NewAnalyticsController(app),
		controllers.NewSessionsController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "audit"
}
