package main

import (
	"context"
	"errors"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/course-management-api/internal/repository"
	"github.com/noah-isme/course-management-api/pkg/config"
	"github.com/noah-isme/course-management-api/pkg/database"
	"github.com/noah-isme/course-management-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(context.Background(), cfg.Database, logr)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	cli := commandLine{
		db:     db.DB,
		users:  repository.NewUserRepository(db),
		logger: logr,
		stdout: os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logr.Error("command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}
