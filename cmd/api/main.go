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

	_ "github.com/sped-tools/iep-progress-api/api/swagger"
	"github.com/sped-tools/iep-progress-api/internal/handler"
	"github.com/sped-tools/iep-progress-api/internal/middleware"
	"github.com/sped-tools/iep-progress-api/internal/models"
	"github.com/sped-tools/iep-progress-api/internal/repository"
	"github.com/sped-tools/iep-progress-api/internal/service"
	"github.com/sped-tools/iep-progress-api/pkg/cache"
	"github.com/sped-tools/iep-progress-api/pkg/config"
	"github.com/sped-tools/iep-progress-api/pkg/database"
	"github.com/sped-tools/iep-progress-api/pkg/export"
	"github.com/sped-tools/iep-progress-api/pkg/jobs"
	"github.com/sped-tools/iep-progress-api/pkg/logger"
	corsmiddleware "github.com/sped-tools/iep-progress-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sped-tools/iep-progress-api/pkg/middleware/requestid"
	"github.com/sped-tools/iep-progress-api/pkg/storage"
)

// @title IEP Progress API
// @version 1.0.0
// @description Progress tracking and mastery detection for IEP goals
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	observationRepo := repository.NewObservationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	dismissalRepo := repository.NewDismissalRepository(redisClient, cfg.Mastery.DismissalTTL, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "iep-progress-api",
		Audience:           []string{"iep-progress-api"},
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	goalSvc := service.NewGoalService(goalRepo, studentRepo, reviewRepo, validate, logr)
	observationSvc := service.NewObservationService(observationRepo, goalRepo, studentRepo, validate, logr)
	masterySvc := service.NewMasteryService(
		goalRepo,
		observationRepo,
		studentRepo,
		dismissalRepo,
		reviewRepo,
		cacheRepo,
		cfg.Mastery.CacheTTL,
		validate,
		logr,
	)
	masterySvc.SetMetrics(metricsSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	goalHandler := handler.NewGoalHandler(goalSvc)
	observationHandler := handler.NewObservationHandler(observationSvc, masterySvc)
	masteryHandler := handler.NewMasteryHandler(masterySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		session := auth.Group("", middleware.JWT(authSvc))
		session.POST("/logout", authHandler.Logout)
		session.POST("/change-password", authHandler.ChangePassword)
		session.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		students := protected.Group("/students")
		students.GET("", studentHandler.List)
		students.POST("", studentHandler.Create)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", studentHandler.Deactivate)

		students.GET("/:id/goals", goalHandler.ListByStudent)
		students.POST("/:id/goals", goalHandler.Create)

		students.GET("/:id/observations", observationHandler.List)
		students.POST("/:id/observations", observationHandler.Create)
		students.DELETE("/:id/observations/:observationId", observationHandler.Delete)

		students.GET("/:id/mastery/alerts", masteryHandler.Alerts)
		students.POST("/:id/mastery/dismiss", masteryHandler.Dismiss)
		students.GET("/:id/mastery/review", masteryHandler.Review)

		goals := protected.Group("/goals")
		goals.GET("/:id", goalHandler.Get)
		goals.PUT("/:id", goalHandler.Update)
		goals.PATCH("/:id/status", goalHandler.UpdateStatus)
		goals.POST("/:id/objectives", goalHandler.CreateObjective)

		objectives := protected.Group("/objectives")
		objectives.PUT("/:id", goalHandler.UpdateObjective)
		objectives.PATCH("/:id/status", goalHandler.UpdateObjectiveStatus)

		// Observations are append-only; PUT is a deliberate 409.
		protected.PUT("/observations/:id", observationHandler.Reject)
	}

	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportRepository(db)

		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

		exportSvc := service.NewExportService(
			studentRepo,
			goalRepo,
			observationRepo,
			fileStore,
			signer,
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
			logr,
			export.NewCSVExporter(),
			export.NewPDFExporter(),
		)

		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			BufferSize: 64,
			MaxRetries: cfg.Reports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})

		reportSvc := service.NewReportService(reportRepo, studentRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportHandler := handler.NewReportHandler(reportSvc)

		reports := protected.Group("/reports")
		reports.POST("", reportHandler.Create)
		reports.GET("/:id", reportHandler.Status)

		// Token in the path carries its own auth.
		api.GET("/export/:token", reportHandler.Download)

		reportQueue.Start(ctx)
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}

	if reportQueue != nil {
		reportQueue.Stop()
	}
}
