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
	"go.uber.org/zap"

	_ "github.com/garrison-hr/hrms-api/api/swagger"
	"github.com/garrison-hr/hrms-api/internal/handler"
	"github.com/garrison-hr/hrms-api/internal/middleware"
	"github.com/garrison-hr/hrms-api/internal/models"
	"github.com/garrison-hr/hrms-api/internal/repository"
	"github.com/garrison-hr/hrms-api/internal/service"
	"github.com/garrison-hr/hrms-api/pkg/cache"
	"github.com/garrison-hr/hrms-api/pkg/config"
	"github.com/garrison-hr/hrms-api/pkg/database"
	"github.com/garrison-hr/hrms-api/pkg/jobs"
	"github.com/garrison-hr/hrms-api/pkg/logger"
	corsmiddleware "github.com/garrison-hr/hrms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/garrison-hr/hrms-api/pkg/middleware/requestid"
	"github.com/garrison-hr/hrms-api/pkg/storage"
)

// @title Garrison HRMS API
// @version 1.0.0
// @description Attendance, late-arrival penalty and bonus hours management
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	settingsRepo := repository.NewPenaltySettingsRepository(db)
	leaveRepo := repository.NewShortLeaveRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	biometricRepo := repository.NewBiometricLogRepository(db)
	reportRepo := repository.NewReportJobRepository(db)

	// Redis is optional. Without it the dashboard recomputes on every hit.
	var cacheSvc *service.CacheService
	if cfg.Dashboard.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
		}
	}

	// Services.
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, userRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, settingsRepo, validate, logr)
	penaltySvc := service.NewPenaltyService(settingsRepo, attendanceRepo, leaveRepo, ledgerRepo, userRepo, metricsSvc, validate, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, userRepo, validate, logr)
	ledgerSvc := service.NewLedgerService(ledgerRepo, userRepo, validate, logr)
	biometricSvc := service.NewBiometricService(biometricRepo, employeeRepo, attendanceRepo, settingsRepo, service.BiometricConfig{
		DeviceURL: cfg.Biometric.DeviceURL,
		Timeout:   cfg.Biometric.Timeout,
	}, validate, logr)
	dashboardSvc := service.NewDashboardService(employeeRepo, attendanceRepo, leaveRepo, ledgerRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	// Report pipeline: local file store, signed download URLs, in-memory queue.
	var reportSvc *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(attendanceRepo, ledgerRepo, fileStore, logr)
		worker := service.NewReportWorker(reportRepo, exportSvc, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc = service.NewReportService(reportRepo, reportQueue, signer, fileStore, cfg.APIPrefix, validate, logr)

		reportQueue.Start(ctx)
		if err := reportSvc.RecoverPendingJobs(ctx, time.Now().UTC().Add(-24*time.Hour)); err != nil {
			logr.Sugar().Warnw("failed to recover pending report jobs", "error", err)
		}
		reportSvc.StartCleanup(ctx, cfg.Reports.CleanupInterval, cfg.Reports.SignedURLTTL)
	}

	if cfg.Biometric.Enabled {
		go pollBiometricDevice(ctx, biometricSvc, cfg.Biometric.PollInterval, logr)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	penaltyHandler := handler.NewPenaltyHandler(penaltySvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	biometricHandler := handler.NewBiometricHandler(biometricSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, userRepo, authSvc, routeHandlers{
		auth:      authHandler,
		employee:  employeeHandler,
		attend:    attendanceHandler,
		penalty:   penaltyHandler,
		leave:     leaveHandler,
		ledger:    ledgerHandler,
		biometric: biometricHandler,
		dashboard: dashboardHandler,
		report:    handler.NewReportHandler(reportSvc),
	}, reportSvc != nil)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
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

type routeHandlers struct {
	auth      *handler.AuthHandler
	employee  *handler.EmployeeHandler
	attend    *handler.AttendanceHandler
	penalty   *handler.PenaltyHandler
	leave     *handler.LeaveHandler
	ledger    *handler.LedgerHandler
	biometric *handler.BiometricHandler
	dashboard *handler.DashboardHandler
	report    *handler.ReportHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, userRepo *repository.UserRepository, authSvc *service.AuthService, h routeHandlers, reportsEnabled bool) {
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleHROfficer)
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.auth.Login)
		auth.POST("/refresh", h.auth.Refresh)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", h.auth.Logout)
		authed.POST("/auth/change-password", h.auth.ChangePassword)
		authed.GET("/auth/me", h.auth.Me)

		employees := authed.Group("/employees", staff)
		{
			employees.GET("", h.employee.List)
			employees.GET("/:id", h.employee.Get)
			employees.POST("", h.employee.Create)
			employees.PUT("/:id", h.employee.Update)
			employees.DELETE("/:id", admins, h.employee.Deactivate)
		}

		attendance := authed.Group("/attendance")
		{
			attendance.GET("", h.attend.List)
			attendance.GET("/summary", h.attend.Summary)
			attendance.POST("", staff, h.attend.Mark)
			attendance.POST("/bulk", staff, h.attend.BulkMark)
			attendance.POST("/finalize", admins, h.attend.Finalize)
		}

		penalty := authed.Group("/penalty", staff)
		{
			penalty.GET("/settings", h.penalty.GetSettings)
			penalty.POST("/settings", admins, h.penalty.SaveSettings)
			penalty.POST("/calculate", h.penalty.Calculate)
			penalty.POST("/save", h.penalty.Save)
		}

		leaves := authed.Group("/leaves")
		{
			leaves.GET("", h.leave.List)
			leaves.POST("", h.leave.Request)
			leaves.POST("/:id/approve", staff, h.leave.Approve)
			leaves.POST("/:id/reject", staff, h.leave.Reject)
		}

		biometric := authed.Group("/biometric", staff)
		{
			biometric.POST("/poll", h.biometric.Poll)
			biometric.POST("/punch", h.biometric.Punch)
			biometric.GET("/logs", h.biometric.Logs)
		}

		ledger := authed.Group("/ledger", staff)
		{
			ledger.GET("", h.ledger.List)
			ledger.GET("/summary", h.ledger.Summary)
			ledger.POST("/bonus", admins, h.ledger.AwardBonus)
		}

		if cfg.Dashboard.Enabled {
			authed.GET("/dashboard/summary", staff, h.dashboard.Summary)
		}

		if reportsEnabled {
			reports := authed.Group("/reports", staff)
			{
				reports.POST("", h.report.Create)
				reports.GET("/:id", h.report.Status)
			}
		}
	}

	if reportsEnabled {
		// Download is authenticated by the signed token itself, not a JWT.
		api.GET("/reports/download/:token",
			middleware.Audit(userRepo, models.AuditActionReportDownload, "report"),
			h.report.Download)
	}
}

func pollBiometricDevice(ctx context.Context, svc *service.BiometricService, interval time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			date := time.Now().UTC().Format("2006-01-02")
			result, err := svc.Poll(ctx, models.BiometricPollRequest{Date: date})
			if err != nil {
				logr.Sugar().Warnw("biometric poll failed", "date", date, "error", err)
				continue
			}
			logr.Sugar().Infow("biometric poll complete",
				"date", date,
				"punches", result.PunchCount,
				"marked", result.RecordsMarked,
				"degraded", result.Degraded)
		}
	}
}
