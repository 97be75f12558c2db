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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/od-tracker-api/api/swagger"
	"github.com/noah-isme/od-tracker-api/internal/handler"
	"github.com/noah-isme/od-tracker-api/internal/middleware"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	"github.com/noah-isme/od-tracker-api/internal/service"
	"github.com/noah-isme/od-tracker-api/pkg/cache"
	"github.com/noah-isme/od-tracker-api/pkg/config"
	"github.com/noah-isme/od-tracker-api/pkg/database"
	"github.com/noah-isme/od-tracker-api/pkg/jobs"
	"github.com/noah-isme/od-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/od-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/od-tracker-api/pkg/middleware/requestid"
	"github.com/noah-isme/od-tracker-api/pkg/storage"
)

// @title Campus OD Tracker API
// @version 1.0.0
// @description On-duty request approval workflow for campus events
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and dedup guards degraded", "error", err)
		redisClient = nil
	}

	reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	attachmentStorage, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	odRepo := repository.NewODRequestRepository(db)
	leetRepo := repository.NewLeetCodeRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, redisClient != nil)
	notifSvc := service.NewNotificationService(notifRepo, cacheRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "od-tracker-api",
		Audience:           []string{"od-tracker"},
	})
	limitSvc := service.NewLimitService(odRepo, userRepo, notifSvc, validate, logr, cfg.Limits.MaxPerSemester)
	approvalSvc := service.NewApprovalService(odRepo, userRepo, notifSvc, metricsSvc, validate, logr)
	submissionSvc := service.NewSubmissionService(odRepo, userRepo, leetRepo, limitSvc, notifSvc, validate, logr)
	escalationSvc := service.NewEscalationService(odRepo, notifSvc, metricsSvc, logr, cfg.Escalation.Threshold)
	leetSvc := service.NewLeetCodeService(leetRepo, validate, logr)
	odSvc := service.NewODRequestService(odRepo, logr)
	analyticsSvc := service.NewAnalyticsService(odRepo, cacheSvc, logr, cfg.Analytics.CacheTTL)
	facultySvc := service.NewFacultyService(facultyRepo, logr)
	reportSvc := service.NewReportService(reportRepo, odRepo, reportStorage, reportSigner, validate, logr)

	// Background queues
	notifQueue := jobs.NewQueue("notifications", notifSvc.DispatchHandler, jobs.QueueConfig{
		Workers: 1, Logger: logr,
	})
	notifSvc.AttachQueue(notifQueue)
	notifQueue.Start(ctx)
	defer notifQueue.Stop()

	reportQueue := jobs.NewQueue("reports", reportSvc.RenderHandler, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc.AttachQueue(reportQueue)
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	if cfg.Escalation.Enabled {
		go escalationSvc.Run(ctx, cfg.Escalation.Interval)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	odHandler := handler.NewODRequestHandler(submissionSvc, odSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc, attachmentStorage)
	limitHandler := handler.NewLimitHandler(limitSvc)
	leetHandler := handler.NewLeetCodeHandler(leetSvc, submissionSvc)
	notifHandler := handler.NewNotificationHandler(notifSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	facultyHandler := handler.NewFacultyHandler(facultySvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	escalationHandler := handler.NewEscalationHandler(escalationSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	protected := api.Group("", middleware.JWT(authSvc))
	{
		od := protected.Group("/od-requests")
		od.POST("", middleware.RequireRoles(models.RoleStudent), odHandler.Submit)
		od.GET("", odHandler.List)
		od.GET("/exceptions", middleware.RequireRoles(models.RoleHOD, models.RoleAdmin), limitHandler.ExceptionCandidates)
		od.GET("/:id", odHandler.Get)
		od.POST("/:id/mentor-action", middleware.RequireRoles(models.RoleMentor), approvalHandler.MentorAction)
		od.POST("/:id/hod-action", middleware.RequireRoles(models.RoleHOD), approvalHandler.HODAction)
		od.POST("/:id/certificate", middleware.RequireRoles(models.RoleStudent), approvalHandler.UploadCertificate)
		od.POST("/:id/certificate/approve", middleware.RequireRoles(models.RoleHOD), approvalHandler.ApproveCertificate)
		od.POST("/:id/finalize", middleware.RequireRoles(models.RolePrincipal, models.RoleAdmin), approvalHandler.Finalize)
		od.POST("/:id/override", middleware.RequireRoles(models.RoleHOD), approvalHandler.Override)
		od.POST("/:id/exception-decision", middleware.RequireRoles(models.RoleHOD), limitHandler.ExceptionDecision)

		protected.GET("/students/:id/od-limit", limitHandler.Snapshot)

		leet := protected.Group("/leetcode")
		leet.PUT("/weeks", middleware.RequireRoles(models.RoleStudent), leetHandler.Upsert)
		leet.GET("/weeks", middleware.RequireRoles(models.RoleStudent), leetHandler.List)
		leet.GET("/status", middleware.RequireRoles(models.RoleStudent), leetHandler.Status)

		protected.GET("/notifications", notifHandler.List)
		protected.POST("/notifications/:id/read", notifHandler.MarkRead)

		protected.GET("/faculty", facultyHandler.List)

		if cfg.Analytics.Enabled {
			protected.GET("/analytics/department",
				middleware.RequireRoles(models.RoleMentor, models.RoleHOD, models.RolePrincipal, models.RoleAdmin),
				analyticsHandler.Department)
		}

		if cfg.Reports.Enabled {
			reports := protected.Group("/reports", middleware.RequireRoles(models.RoleHOD, models.RolePrincipal, models.RoleAdmin))
			reports.POST("", reportHandler.Generate)
			reports.GET("/:id", reportHandler.Status)
		}

		protected.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
		protected.POST("/escalations/sweep", middleware.RequireRoles(models.RoleAdmin), escalationHandler.Sweep)
	}

	// download validates its own signed token, no JWT required
	if cfg.Reports.Enabled {
		api.GET("/reports/download", reportHandler.Download)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
