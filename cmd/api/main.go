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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "crms/api/swagger" // swagger docs
	"crms/config"
	"crms/internal/database"
	"crms/internal/handler"
	"crms/internal/middleware"
	"crms/internal/repository"
	"crms/internal/service"
	"crms/internal/websocket"
	"crms/pkg/jwt"
	"crms/pkg/logger"
	"crms/pkg/redis"
)

// @title           CRMS API
// @version         1.0
// @description     Construction resource management: projects, sites, resource requests, procurement and budget-gated finance approvals.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(os.Getenv("CRMS_CONFIG"))
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	zlog, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	db, err := database.NewConnection(&cfg.Database, cfg.Log.Level, zlog)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zlog); err != nil {
		return err
	}

	// Redis is optional: without it tokens are not revocable, login is not
	// rate limited and the dashboard is computed on every call.
	var (
		revoker service.TokenRevoker
		checker middleware.RevocationChecker
		cache   service.Cache
		limiter middleware.Limiter
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, zlog)
		if err != nil {
			zlog.Warn("Redis unavailable, continuing without it", zap.Error(err))
		} else {
			defer rdb.Close()
			revoker, checker, cache, limiter = rdb, rdb, rdb, rdb
		}
	}

	jwtMgr := jwt.NewManager(&cfg.Auth)

	wsHub := websocket.NewHub(zlog)
	go wsHub.Run()
	defer wsHub.Stop()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	orderRepo := repository.NewPurchaseOrderRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	// Services
	auditSink := service.NewAuditSink(auditRepo, zlog)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, wsHub, zlog)
	userService := service.NewUserService(userRepo, auditSink, zlog)
	authService := service.NewAuthService(userRepo, jwtMgr, revoker, zlog)
	projectService := service.NewProjectService(projectRepo, userRepo, budgetRepo, auditSink)
	catalogService := service.NewCatalogService(catalogRepo)
	requestService := service.NewRequestService(requestRepo, projectRepo, catalogRepo, auditSink, notificationService, cfg.Workflow, zlog)
	orderService := service.NewPurchaseOrderService(txManager, orderRepo, projectRepo, budgetRepo, requestRepo, quotationRepo, catalogRepo, auditSink, notificationService)
	quotationService := service.NewQuotationService(txManager, quotationRepo, requestRepo, catalogRepo, auditSink)
	expenseService := service.NewExpenseService(txManager, expenseRepo, projectRepo, orderRepo, budgetRepo, auditSink, notificationService)
	attendanceService := service.NewAttendanceService(attendanceRepo, projectRepo, auditSink)
	auditService := service.NewAuditService(auditRepo)
	dashboardService := service.NewDashboardService(statisticsRepo, projectRepo, budgetRepo, notificationRepo, cache, cfg.Dashboard.CacheTTL, zlog)
	reportService := service.NewReportService(orderRepo, expenseRepo, zlog)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = userService.EnsureAdmin(seedCtx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	cancel()
	if err != nil {
		return fmt.Errorf("admin bootstrap failed: %w", err)
	}

	cookies := middleware.CookieOptions{
		Secure:     cfg.Auth.SecureCookies,
		AccessTTL:  int(cfg.Auth.AccessTokenTTL.Seconds()),
		RefreshTTL: int(cfg.Auth.RefreshTokenTTL.Seconds()),
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(zlog),
		middleware.Logger(zlog),
		middleware.SecurityHeaders(),
		middleware.BodyLimit(cfg.Server.BodyLimit),
	)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, jwtMgr, c)
	})

	public := router.Group("/api")
	protected := router.Group("/api", middleware.JWTAuth(jwtMgr, checker, zlog))

	loginLimit := middleware.RateLimit(limiter, cfg.Server.LoginRateLimit, time.Minute, zlog)
	handler.NewAuthHandler(authService, cookies, loginLimit, zlog).RegisterRoutes(public, protected)
	handler.NewUserHandler(userService, zlog).RegisterRoutes(protected)
	handler.NewProjectHandler(projectService, zlog).RegisterRoutes(protected)
	handler.NewCatalogHandler(catalogService, zlog).RegisterRoutes(protected)
	handler.NewRequestHandler(requestService, zlog).RegisterRoutes(protected)
	handler.NewPurchaseOrderHandler(orderService, zlog).RegisterRoutes(protected)
	handler.NewQuotationHandler(quotationService, zlog).RegisterRoutes(protected)
	handler.NewExpenseHandler(expenseService, zlog).RegisterRoutes(protected)
	handler.NewAttendanceHandler(attendanceService, zlog).RegisterRoutes(protected)
	handler.NewAuditHandler(auditService, zlog).RegisterRoutes(protected)
	handler.NewNotificationHandler(notificationService, zlog).RegisterRoutes(protected)
	handler.NewDashboardHandler(dashboardService, zlog).RegisterRoutes(protected)
	handler.NewReportHandler(reportService, zlog).RegisterRoutes(protected)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zlog.Info("Shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(ctx)
}
