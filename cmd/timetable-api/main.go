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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly classroom timetable generation with optional generative candidates.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// the cache is an optimisation; serve without it
		logr.Warn("redis unavailable, schedule cache disabled", zap.Error(err))
	}

	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	planner := service.NewPlanner(cfg.Oracle, logr.Named("scheduler"))
	svcCfg := service.ScheduleServiceConfig{CacheTTL: cfg.Scheduler.CacheTTL, RunTTL: cfg.Scheduler.RunTTL}

	var (
		scheduleSvc *service.ScheduleService
		recorder    *service.RunRecorder
	)
	if db != nil {
		runRepo := repository.NewScheduleRunRepository(db)
		recorder = service.NewRunRecorder(runRepo, metrics, service.RunRecorderConfig{
			Workers:    cfg.Runs.Workers,
			MaxRetries: cfg.Runs.Retries,
			Retention:  cfg.Runs.Retention,
		}, logr.Named("runs"))
		recorder.Start(ctx)
		scheduleSvc = service.NewScheduleService(planner, runRepo, recorder, cacheSvc, metrics, nil, logr.Named("schedules"), svcCfg)
	} else {
		scheduleSvc = service.NewScheduleService(planner, nil, nil, cacheSvc, metrics, nil, logr.Named("schedules"), svcCfg)
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(scheduleSvc, files, signer, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		CleanupInterval: cfg.Exports.CleanupInterval,
	}, logr.Named("exports"))
	exportSvc.StartCleanup(ctx)

	var authSvc *service.AuthService
	if cfg.JWT.Enabled {
		authSvc = service.NewAuthService(cfg.JWT.Secret)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	registerRoutes(r, routeDeps{
		cfg:       cfg,
		logger:    logr,
		gate:      middleware.NewAuthGate(authSvc, cfg.JWT.Enabled),
		schedules: handler.NewScheduleHandler(scheduleSvc, exportSvc),
		health:    handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "oracle", cfg.Oracle.Enabled, "auth", cfg.JWT.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if recorder != nil {
		recorder.Stop(shutdownTimeout)
	}
}

type routeDeps struct {
	cfg       *config.Config
	logger    *zap.Logger
	gate      *middleware.AuthGate
	schedules *handler.ScheduleHandler
	health    *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, deps routeDeps) {
	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if deps.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	// the token is the credential
	api.GET("/exports/:token", deps.schedules.Download)

	secured := api.Group("")
	secured.Use(deps.gate.Authenticate())
	secured.GET("/classrooms/defaults", deps.schedules.DefaultClassrooms)
	secured.GET("/schedules/runs", deps.schedules.ListRuns)
	secured.GET("/schedules/runs/:id", deps.schedules.GetRun)

	writers := deps.gate.Require(models.RoleAdmin, models.RoleScheduler)
	secured.POST("/schedules/generate", writers, middleware.Audit(deps.logger, "schedule.generate"), deps.schedules.Generate)
	secured.POST("/schedules/runs/:id/export", writers, middleware.Audit(deps.logger, "schedule.export"), deps.schedules.Export)
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := make(map[string]handler.ReadinessCheck)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
