package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/axelbon/pos-backend/api/swagger" // swagger docs
	"github.com/axelbon/pos-backend/internal/config"
	"github.com/axelbon/pos-backend/internal/database"
	"github.com/axelbon/pos-backend/internal/handler"
	"github.com/axelbon/pos-backend/internal/logger"
	"github.com/axelbon/pos-backend/internal/middleware"
	"github.com/axelbon/pos-backend/internal/repository"
	"github.com/axelbon/pos-backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           POS Audit Log API
// @version         1.0
// @description     Read-only inspection of the point-of-sale audit log.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// Set up dependencies (Repository -> Service -> Handler)
	auditRepo := repository.NewAuditLogRepository(db)
	auditService := service.NewAuditService(auditRepo, zlog)

	auditHandler := handler.NewAuditHandler(auditService)
	healthHandler := handler.NewHealthHandler(db)

	router := gin.New()
	router.Use(middleware.TraceID(), middleware.Logger(zlog), middleware.Recovery(zlog))

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", middleware.TraceIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.TraceIDHeader}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	healthHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
