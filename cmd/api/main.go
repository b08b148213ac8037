package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-management-api/api/swagger"
	"github.com/noah-isme/course-management-api/internal/handler"
	"github.com/noah-isme/course-management-api/internal/repository"
	"github.com/noah-isme/course-management-api/internal/server"
	"github.com/noah-isme/course-management-api/internal/service"
	"github.com/noah-isme/course-management-api/pkg/cache"
	"github.com/noah-isme/course-management-api/pkg/config"
	"github.com/noah-isme/course-management-api/pkg/database"
	"github.com/noah-isme/course-management-api/pkg/jobs"
	"github.com/noah-isme/course-management-api/pkg/logger"
	"github.com/noah-isme/course-management-api/pkg/mail"
	"github.com/noah-isme/course-management-api/pkg/storage"
	"github.com/noah-isme/course-management-api/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

// @title Course Management API
// @version 0.1.0
// @description Courses, lessons, enrollments, assignments and grading
// @BasePath /
// @schemes http https
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
	zap.ReplaceGlobals(logr)

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg, logr)
	if err != nil {
		logr.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(ctx, db.DB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logr.Info("database migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, token revocation disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	provider, err := mail.New(cfg.Mail, logr)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}
	mailer := mail.NewAsyncMailer(provider, jobs.Config{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	mailer.Start(ctx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mailer.Stop(drainCtx); err != nil {
			logr.Warn("mail queue not drained", zap.Error(err))
		}
	}()

	files, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		return fmt.Errorf("init attachment storage: %w", err)
	}

	metrics := service.NewMetricsService()
	engine := buildRouter(cfg, logr, db, redisClient, mailer, files, metrics)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		return srv.Close()
	}
	logr.Info("server stopped")
	return nil
}

func buildRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, mailer mail.Mailer, files *storage.LocalStorage, metrics *service.MetricsService) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	lessons := repository.NewLessonRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	blocklist := repository.NewTokenBlocklist(redisClient)

	validate := service.NewValidator()
	notifications := service.NewNotificationService(mailer, logr)

	authSvc := service.NewAuthService(users, blocklist, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(users, validate, logr)
	courseSvc := service.NewCourseService(courses, users, users, validate, logr)
	lessonSvc := service.NewLessonService(lessons, courses, users, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, users, courses, users, notifications, metrics, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignments, courses, validate, logr)
	submissionSvc := service.NewSubmissionService(service.SubmissionDeps{
		Submissions: submissions,
		Assignments: assignments,
		Courses:     courses,
		Users:       users,
		Enrollments: enrollments,
		Audit:       users,
		Notifier:    notifications,
		Metrics:     metrics,
	}, validate, logr)
	attachmentSvc := service.NewAttachmentService(files, storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL), service.AttachmentConfig{
		APIPrefix:    cfg.APIPrefix,
		MaxFileSize:  cfg.Attachments.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Attachments.AllowedMIMEs,
	}, logr)
	reportSvc := service.NewReportService(courses, assignments, enrollments, submissions, logr)

	checks := map[string]handler.DependencyCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cache.HealthCheck(redisClient)
	}

	return server.NewRouter(server.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		ServiceName:    cfg.Tracing.ServiceName,
		EnableTracing:  cfg.Tracing.Enabled,
		EnableMetrics:  cfg.Metrics.Enabled,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Tokens:         authSvc,
		Audit:          users,
		Observer:       metrics,
	}, server.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Lessons:     handler.NewLessonHandler(lessonSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Submissions: handler.NewSubmissionHandler(submissionSvc),
		Attachments: handler.NewAttachmentHandler(attachmentSvc),
		Reports:     handler.NewReportHandler(reportSvc),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	})
}
