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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/quizhub-api/api/swagger"
	"github.com/noah-isme/quizhub-api/internal/handler"
	internalmiddleware "github.com/noah-isme/quizhub-api/internal/middleware"
	"github.com/noah-isme/quizhub-api/internal/models"
	"github.com/noah-isme/quizhub-api/internal/repository"
	"github.com/noah-isme/quizhub-api/internal/service"
	"github.com/noah-isme/quizhub-api/pkg/bus"
	"github.com/noah-isme/quizhub-api/pkg/cache"
	"github.com/noah-isme/quizhub-api/pkg/config"
	"github.com/noah-isme/quizhub-api/pkg/database"
	"github.com/noah-isme/quizhub-api/pkg/logger"
	"github.com/noah-isme/quizhub-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/quizhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/quizhub-api/pkg/middleware/requestid"
)

// @title QuizHub Enrollment API
// @version 1.0.0
// @description Group enrollment, invites, QR join codes and assignment fan-out
// @BasePath /api/v1
// @schemes http https

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	readiness := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	var rateStore service.RateLimitStore
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		rateStore = repository.NewRateLimitRepository(redisClient, "quizhub:ratelimit")
		readiness["redis"] = redisPing(redisClient)
	} else {
		rateStore = service.NewMemoryRateLimitStore()
	}

	metricsSvc := service.NewMetricsService()

	telemetryRepo := repository.NewTelemetryRepository(db)
	var telemetrySvc *service.TelemetryService
	if cfg.Telemetry.NATSURL != "" {
		eventBus, err := bus.New(cfg.Telemetry.NATSURL, cfg.Telemetry.SubjectPrefix)
		if err != nil {
			logr.Fatal("failed to connect event bus", zap.Error(err))
		}
		defer eventBus.Close()
		telemetrySvc = service.NewTelemetryService(telemetryRepo, eventBus, logr)
	} else {
		telemetrySvc = service.NewTelemetryService(telemetryRepo, nil, logr)
	}

	notificationSvc := service.NewNotificationService(mailer.New(cfg.Email, logr), service.NotificationConfig{
		BaseURL:    cfg.BaseURL,
		Workers:    cfg.Notifications.Workers,
		Retries:    cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, metricsSvc, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	groupRepo := repository.NewGroupRepository(db)
	userRepo := repository.NewUserRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	joinSessionRepo := repository.NewJoinSessionRepository(db)
	quizInstanceRepo := repository.NewQuizInstanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	validate := validator.New()

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	assignmentSvc := service.NewAssignmentService(quizInstanceRepo, assignmentRepo, membershipRepo, telemetrySvc, metricsSvc, logr)
	joinSessionSvc := service.NewJoinSessionService(joinSessionRepo, groupRepo, service.JoinSessionConfig{
		TTL:     cfg.Enrollment.JoinSessionTTL,
		BaseURL: cfg.BaseURL,
	}, logr)
	inviteSvc := service.NewInviteService(inviteRepo, groupRepo, telemetrySvc, notificationSvc, service.InviteConfig{
		TTL: cfg.Enrollment.InviteTTL,
	}, logr)
	enrollmentSvc := service.NewEnrollmentService(membershipRepo, groupRepo, userRepo, assignmentSvc, joinSessionSvc, inviteSvc, telemetrySvc, metricsSvc, logr)
	bulkInviteSvc := service.NewBulkInviteService(groupRepo, userRepo, assignmentSvc, enrollmentSvc, inviteSvc, notificationSvc, telemetrySvc, metricsSvc, validate, logr)
	quizInstanceSvc := service.NewQuizInstanceService(quizInstanceRepo, groupRepo, assignmentSvc, validate, logr)
	rateLimiter := service.NewRateLimiter(rateStore, service.RateLimiterConfig{
		Limit:  cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	}, metricsSvc, logr)

	groupEnrollmentHandler := handler.NewGroupEnrollmentHandler(bulkInviteSvc, validate)
	joinSessionHandler := handler.NewJoinSessionHandler(joinSessionSvc, validate)
	joinHandler := handler.NewJoinHandler(enrollmentSvc, validate)
	inviteHandler := handler.NewInviteHandler(inviteSvc, enrollmentSvc, validate)
	quizInstanceHandler := handler.NewQuizInstanceHandler(quizInstanceSvc, validate)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/invites/:token", inviteHandler.Verify)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	mentor := secured.Group("")
	mentor.Use(internalmiddleware.RequireRoles(models.RoleMentor))
	mentor.POST("/groups/:id/add-students", internalmiddleware.RateLimit(rateLimiter, "add-students"), groupEnrollmentHandler.AddStudents)
	mentor.POST("/groups/:id/qr-session", joinSessionHandler.Create)
	mentor.GET("/groups/:id/qr-session", joinSessionHandler.Get)
	mentor.DELETE("/groups/:id/qr-session", joinSessionHandler.Revoke)
	mentor.GET("/groups/:id/qr-session/sheet", joinSessionHandler.Sheet)
	mentor.POST("/quizzes/:id/instances", quizInstanceHandler.Create)

	student := secured.Group("")
	student.Use(internalmiddleware.RequireRoles(models.RoleStudent))
	student.POST("/groups/join-with-token", joinHandler.JoinWithToken)
	student.POST("/join-with-token", joinHandler.JoinWithToken)
	student.POST("/invites/accept", inviteHandler.Accept)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func redisPing(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
