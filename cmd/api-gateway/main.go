package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title SMA Timetable API
// @version 1.0.0
// @description Teacher availability and class timetable service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	rules, err := models.NewSlotRules(cfg.Timetable.Days, cfg.Timetable.PeriodsPerDay)
	if err != nil {
		return fmt.Errorf("timetable config: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db, logr)
		if err != nil {
			return err
		}
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	app := buildApp(cfg, rules, db, redisClient, logr)
	if app.worker != nil {
		app.worker.Start(ctx)
		defer app.worker.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type application struct {
	metrics      *service.MetricsService
	auth         *service.AuthService
	users        *service.UserService
	courses      *service.CourseService
	assignment   *service.AssignmentService
	availability *service.AvailabilityService
	schedules    *service.ScheduleService
	dashboard    *service.DashboardService
	reconcile    *service.ReconcileService
	worker       *service.ReconcileWorker
	ready        map[string]func(context.Context) error
}

func buildApp(cfg *config.Config, rules models.SlotRules, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	tx := repository.NewTransactor(db)

	ready := map[string]func(context.Context) error{"postgres": db.PingContext}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient, "timetable", logr)
		cacheRepo = redisRepo
		ready["redis"] = redisRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	reconcileSvc := service.NewReconcileService(scheduleRepo, availabilityRepo, tx, cacheSvc, metrics, logr.Named("reconcile"))

	var worker *service.ReconcileWorker
	assignmentParams := service.AssignmentServiceParams{
		Schedules:     scheduleRepo,
		Availability:  availabilityRepo,
		Tx:            tx,
		Cache:         cacheSvc,
		Metrics:       metrics,
		Validator:     validate,
		Logger:        logr.Named("assignment"),
		Rules:         rules,
		CommitTimeout: cfg.Timetable.CommitTimeout,
	}
	if cfg.Reconciler.Enabled {
		worker = service.NewReconcileWorker(reconcileSvc, service.ReconcileWorkerConfig{
			Interval:   cfg.Reconciler.Interval,
			Workers:    cfg.Reconciler.Workers,
			MaxRetries: cfg.Reconciler.Retries,
			RetryDelay: time.Second,
		}, logr.Named("reconcile_worker"))
		assignmentParams.Reconciler = worker
	}

	return &application{
		metrics: metrics,
		auth: service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		users:      service.NewUserService(userRepo, validate, logr),
		courses:    service.NewCourseService(courseRepo, cacheSvc, validate),
		assignment: service.NewAssignmentService(assignmentParams),
		availability: service.NewAvailabilityService(service.AvailabilityServiceParams{
			Users:        userRepo,
			Schedules:    scheduleRepo,
			Availability: availabilityRepo,
			Tx:           tx,
			Cache:        cacheSvc,
			Validator:    validate,
			Logger:       logr.Named("availability"),
			Rules:        rules,
		}),
		schedules: service.NewScheduleService(scheduleRepo, rules, nil, nil),
		dashboard: service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr),
		reconcile: reconcileSvc,
		worker:    worker,
		ready:     ready,
	}
}
