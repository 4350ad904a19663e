package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opswell/adminkit/modules/audit"
	auditservices "github.com/opswell/adminkit/modules/audit/services"
	"github.com/opswell/adminkit/modules/core"
	"github.com/opswell/adminkit/pkg/application"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/configuration"
	"github.com/opswell/adminkit/pkg/eventbus"
	"github.com/opswell/adminkit/pkg/metrics"
	"github.com/opswell/adminkit/pkg/middleware"
	"github.com/opswell/adminkit/pkg/server"
)

func main() {
	conf := configuration.Use()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		logger.WithError(err).Fatal("failed to create database pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("failed to reach database")
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})

	// Audit first: core's services record into the audit trail.
	if err := audit.NewModule().Register(app); err != nil {
		logger.WithError(err).Fatal("failed to register audit module")
	}
	if err := core.NewModule().Register(app); err != nil {
		logger.WithError(err).Fatal("failed to register core module")
	}

	app.RegisterMiddleware(
		middleware.WithPool(pool),
		middleware.RequestLogger(logger),
		middleware.ProvideParams(),
		middleware.ProvideTenantID(),
		middleware.ProvideCauserID(),
	)
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	sessions := app.Service(auditservices.SessionService{}).(*auditservices.SessionService)
	go sessions.RunSweeper(composables.WithPool(ctx, pool))

	logger.WithField("address", conf.SocketAddress).Info("starting server")
	if err := server.NewHTTPServer(app).Start(conf.SocketAddress); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
