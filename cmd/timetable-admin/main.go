package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, logr)
	if err != nil {
		logr.Fatal("init migrator", zap.Error(err))
	}

	scheduleRepo := repository.NewScheduleRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	tx := repository.NewTransactor(db)
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(nil, metrics, 0, logr, false)

	cli := &commandLine{
		migrator:   migrator,
		users:      service.NewUserService(repository.NewUserRepository(db), validator.New(), logr),
		reconciler: service.NewReconcileService(scheduleRepo, availabilityRepo, tx, cacheSvc, metrics, logr),
		out:        os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		logr.Fatal("command failed", zap.Error(err))
	}
}
