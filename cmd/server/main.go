package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moon4656/skyboot-core/internal/cache"
	"github.com/moon4656/skyboot-core/internal/config"
	"github.com/moon4656/skyboot-core/internal/handler"
	"github.com/moon4656/skyboot-core/internal/idgen"
	"github.com/moon4656/skyboot-core/internal/logsink"
	"github.com/moon4656/skyboot-core/internal/middleware"
	"github.com/moon4656/skyboot-core/internal/password"
	"github.com/moon4656/skyboot-core/internal/repository"
	"github.com/moon4656/skyboot-core/internal/service"
	"github.com/moon4656/skyboot-core/internal/token"
	"github.com/moon4656/skyboot-core/pkg/database"
	"github.com/moon4656/skyboot-core/pkg/logger"
	"github.com/moon4656/skyboot-core/pkg/redis"
	"github.com/moon4656/skyboot-core/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.IsDevelopment() {
		logLevel = "debug"
	}
	if err := logger.Init(&logger.Config{
		Level:       logLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting skyboot-core...", zap.String("version", cfg.App.Version))

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Fatal(fmt.Sprintf("Telemetry init failed: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Apply migrations
	if err := repository.Migrate(dbCfg.DSN()); err != nil {
		appLog.Fatal(fmt.Sprintf("Migration failed: %v", err))
	}

	// Initialize Redis (optional)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &redis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   5 * time.Second,
			ReadTimeout:   3 * time.Second,
			WriteTimeout:  3 * time.Second,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
		}
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Initialize repositories
	userStore := repository.NewPostgresUserStore(db.Pool())
	permStore := repository.NewPostgresPermissionStore(db.Pool())
	loginLogStore := repository.NewPostgresLoginLogStore(db.Pool())
	usageLogStore := repository.NewPostgresAPIUsageLogStore(db.Pool())

	// Async log sinks
	loginSink := logsink.New("login_log", cfg.Auth.LogQueueSize, loginLogStore.Append, appLog)
	usageSink := logsink.New("api_usage_log", cfg.Auth.LogQueueSize, usageLogStore.Append, appLog)

	ids := idgen.New(nil)

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Hasher init failed: %v", err))
	}

	codec, err := token.NewCodec(
		cfg.Auth.SigningSecret,
		cfg.Auth.Algorithm,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
		nil,
	)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Token codec init failed: %v", err))
	}

	var replay cache.ReplayCache
	if cfg.Auth.RefreshRotation {
		if redisClient != nil {
			replay = cache.NewRedisReplayCache(redisClient.Client())
		} else {
			replay = cache.NewMemoryReplayCache()
			appLog.Warn("refresh rotation without Redis, replay cache is per-instance")
		}
	}

	// Services
	authService := service.NewAuthService(
		userStore,
		loginSink,
		hasher,
		codec,
		replay,
		ids,
		service.AuthServiceConfig{
			LockThreshold:   cfg.Auth.LockThreshold,
			RefreshRotation: cfg.Auth.RefreshRotation,
		},
		appLog,
	)
	permService := service.NewPermissionService(permStore)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, permService, appLog)
	userHandler := handler.NewUserHandler(authService, appLog)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.App.Name)

	// Login rate limiter
	loginLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.Auth.LoginRatePerSec,
		BurstSize:         cfg.Auth.LoginBurst,
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	})
	defer loginLimiter.Stop()

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(appLog))
	router.Use(middleware.CORS())
	router.Use(telemetry.TracingMiddleware(cfg.App.Name))
	// Usage logging sits outside the guard so rejected requests are still
	// recorded; the session is read after the handler chain runs.
	router.Use(middleware.UsageLog(usageSink, ids))
	router.Use(middleware.AuthGuard(
		middleware.NewGuardConfig(cfg.Auth.ExemptPaths, cfg.Auth.ExemptPrefixes),
		authService,
		appLog,
	))

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(loginLimiter), authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/permissions", authHandler.Permissions)
		}

		users := v1.Group("/users")
		{
			users.GET("/profile", userHandler.Profile)
			users.PUT("/password", userHandler.ChangePassword)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("skyboot-core listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// SIGHUP swaps in a codec with the current SIGNING_SECRET. Every
	// outstanding token becomes invalid at that instant.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			secret := os.Getenv("SIGNING_SECRET")
			if secret == "" {
				appLog.Warn("SIGHUP received but SIGNING_SECRET is empty, keeping current codec")
				continue
			}
			next, err := token.NewCodec(secret, cfg.Auth.Algorithm, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, nil)
			if err != nil {
				appLog.Error("signing secret reload failed", zap.Error(err))
				continue
			}
			authService.SwapCodec(next)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain log queues before closing the database
	if err := loginSink.Close(shutdownCtx); err != nil {
		appLog.Error("login log sink drain failed", zap.Error(err))
	}
	if err := usageSink.Close(shutdownCtx); err != nil {
		appLog.Error("usage log sink drain failed", zap.Error(err))
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Error("telemetry shutdown failed", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
