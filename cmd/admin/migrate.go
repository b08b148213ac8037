package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/pkg/database"
)

var gooseRunFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := gooseRunFunc(context.Background(), cli.db, args[0], args[1:]...); err != nil {
		return err
	}
	cli.logger.Info("migration command finished", zap.String("command", args[0]))
	return nil
}
