package main

import (
	"context"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/opswell/adminkit/pkg/configuration"
)

func main() {
	conf := configuration.Use()
	logger := conf.Logger()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	db, err := goose.OpenDBWithDriver("pgx", conf.Database.ConnectionString())
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("failed to close database")
		}
	}()

	if err := goose.RunContext(context.Background(), command, db, "migrations", os.Args[2:]...); err != nil {
		logger.WithError(err).WithField("command", command).Fatal("migration failed")
	}
	logger.WithField("command", command).Info("migrations applied")
}
