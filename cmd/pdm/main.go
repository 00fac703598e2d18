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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/nimo-pdm/internal/config"
	"github.com/bitfantasy/nimo-pdm/internal/middleware"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/handler"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/observability"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/repository"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/sse"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 未配置 MinIO 时文档存放在本地目录
var localUploadDir = config.GetEnvOrDefault("PDM_UPLOAD_DIR", "./uploads")

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-pdm service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database, cfg.Server.Mode)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := repository.AutoMigrate(context.Background(), db); err != nil {
			zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
		}
	}

	rdb := initRedis(cfg.Redis, zapLogger)
	if rdb != nil {
		defer rdb.Close()
	}

	store, err := initStore(cfg.MinIO, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init object storage", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	hub := sse.NewHub(zapLogger.Named("sse"), metrics.SSEClients)

	repos := repository.NewRepositories(db, rdb)
	services := service.NewServices(service.Deps{
		Repos:     repos,
		Store:     store,
		Publisher: hub,
		Metrics:   metrics,
		Logger:    zapLogger,
		Config:    cfg,
	})
	handlers := handler.NewHandlers(services, hub, handler.NewHealthHandler(db, rdb, Version), cfg)

	auth, closeAuth, err := initAuth(cfg.JWT)
	if err != nil {
		zapLogger.Fatal("Failed to init JWT verification", zap.Error(err))
	}
	defer closeAuth()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(metrics.GinMiddleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/sse/"})))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	var deleteGuard []gin.HandlerFunc
	if cfg.JWT.DeleteRole != "" {
		deleteGuard = append(deleteGuard, middleware.RequireRole(cfg.JWT.DeleteRole))
	}
	handler.RegisterRoutes(router, handlers, auth, deleteGuard...)
	router.NoRoute(func(c *gin.Context) {
		handler.NotFound(c, "Not found")
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE 长连接
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig, mode string) (*gorm.DB, error) {
	level := logger.Info
	if mode == "release" {
		level = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// initRedis 连接失败时返回 nil，偏好设置接口返回 503
func initRedis(cfg config.RedisConfig, zapLogger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, preferences disabled", zap.String("addr", cfg.Addr()), zap.Error(err))
		rdb.Close()
		return nil
	}
	return rdb
}

func initStore(cfg config.MinIOConfig, zapLogger *zap.Logger) (service.ObjectStore, error) {
	if cfg.Endpoint == "" {
		zapLogger.Warn("MinIO not configured, storing documents locally", zap.String("dir", localUploadDir))
		return service.NewLocalStore(localUploadDir), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return service.NewMinIOStore(ctx, cfg)
}

// initAuth 配置 JWKS 地址时用公钥验签，否则使用 HMAC 密钥
func initAuth(cfg config.JWTConfig) (gin.HandlerFunc, func(), error) {
	var opts []jwt.ParserOption
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	if cfg.JWKSURL != "" {
		keyfunc, closeFn, err := middleware.JWKSKeyfunc(cfg.JWKSURL)
		if err != nil {
			return nil, nil, err
		}
		return middleware.JWTAuth(keyfunc, opts...), closeFn, nil
	}
	if cfg.Secret == "" {
		return nil, nil, errors.New("jwt.secret or jwt.jwks_url must be set")
	}
	return middleware.JWTAuth(middleware.HMACKeyfunc(cfg.Secret), opts...), func() {}, nil
}
