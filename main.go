package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dr-Haas/Fytli-sub000/cache"
	"github.com/Dr-Haas/Fytli-sub000/config"
	"github.com/Dr-Haas/Fytli-sub000/handlers"
	"github.com/Dr-Haas/Fytli-sub000/middleware"
	"github.com/Dr-Haas/Fytli-sub000/models"
	"github.com/Dr-Haas/Fytli-sub000/services"
	"github.com/Dr-Haas/Fytli-sub000/utils"
	"github.com/Dr-Haas/Fytli-sub000/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()

	log, err := utils.NewLogger(cfg.LogMode, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	utils.InitMetrics(prometheus.DefaultRegisterer)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	if cfg.ServiceToken == "" {
		log.Fatal("SERVICE_TOKEN is not set, service cannot authenticate Gateway")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(
		&models.BadgeDefinition{},
		&models.WorkoutEvent{},
		&models.UserAggregates{},
		&models.UserBadge{},
		&models.BadgeProgress{},
		&models.WeeklyGoal{},
	); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		log.Fatal("failed to load badge catalog", zap.Error(err), zap.String("source", cfg.CatalogSource))
	}
	if err := services.SyncCatalog(ctx, db, catalog); err != nil {
		log.Fatal("failed to sync badge catalog", zap.Error(err))
	}
	log.Info("badge_catalog_loaded", zap.Int("badges", len(catalog)), zap.String("source", cfg.CatalogSource))

	opts := services.Options{
		Clock:    clockwork.NewRealClock(),
		Buckets:  services.NewTimeBuckets(cfg.MorningCutoffHour, cfg.EveningCutoffHour),
		CacheTTL: cfg.BadgeCacheTTL,
		Logger:   log,
	}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, log)
		if err != nil {
			log.Warn("redis_unavailable_running_without_cache", zap.Error(err))
		} else {
			defer rc.Close()
			opts.Cache = rc
		}
	}

	badgeService := services.NewBadgeService(db, catalog, opts)

	refreshWorker := workers.NewStatsRefreshWorker(badgeService, 200, log)
	hour, minute := cfg.RefreshTime()
	sched, err := services.StartDailyScheduler(opts.Clock, uint(hour), uint(minute), log, "stats_refresh", refreshWorker.Run)
	if err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer func() { _ = sched.Shutdown() }()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  "GET,POST,PUT,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))
	// 🔐 GLOBAL: only Gateway requests, except probes
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, log, "/health", "/metrics"))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"cause":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.SetupBadgeRoutes(app, badgeService, log)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("server_error", zap.Error(err))
			stop()
		}
	}()

	log.Info("server_started",
		zap.String("port", cfg.Port),
		zap.String("origins", cfg.AllowedOrigins),
		zap.String("stats_refresh_at", cfg.StatsRefreshAt),
	)

	<-ctx.Done()
	log.Info("shutting_down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown_failed", zap.Error(err))
	}
}

// loadCatalog returns the builtin catalog or, with BADGE_CATALOG_SOURCE=r2,
// the JSON catalog stored in the R2 bucket.
func loadCatalog(ctx context.Context, cfg config.Config) ([]models.BadgeDefinition, error) {
	if cfg.CatalogSource != "r2" {
		return services.ValidateCatalog(models.DefaultBadgeCatalog)
	}

	r2, err := utils.NewR2Client(ctx, cfg.CloudflareAccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2BucketName)
	if err != nil {
		return nil, err
	}
	return services.LoadCatalogFromObjectStore(ctx, r2, cfg.CatalogKey)
}
