package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testwise_attempt/internal/config"
	"testwise_attempt/internal/controller"
	"testwise_attempt/internal/repository"
	"testwise_attempt/internal/service"
	"testwise_attempt/pkg/configwatcher"
	"testwise_attempt/pkg/database"
	"testwise_attempt/pkg/logger"
	"testwise_attempt/pkg/monitoring"
	"testwise_attempt/pkg/security"
	"testwise_attempt/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client

	services *services
	tracer   *sdktrace.TracerProvider
	ctx      context.Context
	cancel   context.CancelFunc
}

type services struct {
	storage  *service.StorageService
	hub      *service.SessionHub
	registry *service.SessionRegistry
	gormGC   *repository.GormRecoveryCache
}

type controllers struct {
	attempt *controller.AttemptController
	health  *controller.HealthController
}

// gatewayFactory builds the per-session Assessment Service client. With token
// forwarding off every session authenticates with the configured service token.
func gatewayFactory(cfg *config.AssessmentConfig) func(token func() string) service.AssessmentGateway {
	base := repository.NewAssessmentRepository(cfg.BaseURL, cfg.Timeout)
	serviceToken := cfg.ServiceToken
	forward := cfg.ForwardToken
	return func(token func() string) service.AssessmentGateway {
		if !forward {
			return base.WithToken(func() string { return serviceToken })
		}
		return base.WithToken(token)
	}
}

func (a *App) initRecoveryCache(cfg *config.Config) service.RecoveryCache {
	switch cfg.Cache.Type {
	case config.CacheRedis:
		if a.Redis == nil {
			logger.Log.Fatal("cache.type redis requires redis.host")
		}
		return repository.NewRedisRecoveryCache(a.Redis, cfg.Cache.TTL)
	case config.CacheMySQL:
		if a.DB == nil {
			logger.Log.Fatal("cache.type mysql requires database.host")
		}
		gc := repository.NewGormRecoveryCache(a.DB, cfg.Cache.TTL, nil)
		a.services.gormGC = gc
		return gc
	}
	return repository.NewMemoryRecoveryCache(cfg.Cache.TTL, nil)
}

func (a *App) initServices(cfg *config.Config) {
	s := &services{}
	a.services = s

	s.storage = service.NewStorageService(cfg)
	s.hub = service.NewSessionHub(a.Redis)
	go s.hub.Run()

	s.registry = service.NewSessionRegistry(service.SessionConfigFromEngine(cfg.Engine), service.RegistryDeps{
		GatewayFor:  gatewayFactory(&cfg.Assessment),
		Cache:       a.initRecoveryCache(cfg),
		Entitlement: service.RoleEntitlement{},
		Navigator:   s.hub,
		Events:      s.hub,
		Logger:      logger.Named("engine"),
	})
}

func (a *App) initControllers() *controllers {
	return &controllers{
		attempt: controller.NewAttemptController(a.services.registry, a.services.hub, a.services.storage),
		health:  controller.NewHealthController(a.DB, a.Redis, a.services.registry),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(cfg *config.Config) {
	if ttl := cfg.Engine.SessionIdleTTL; ttl > 0 {
		interval := ttl / 4
		if interval < time.Minute {
			interval = time.Minute
		}
		go a.every(interval, func() {
			a.services.registry.Sweep(ttl)
		})
	}

	if gc := a.services.gormGC; gc != nil {
		go a.every(time.Hour, func() {
			n, err := gc.PurgeExpired(a.ctx)
			if err != nil {
				logger.Log.Error("recovery cache purge failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Log.Info("purged expired recovery drafts", zap.Int64("count", n))
			}
		})
	}

	if a.ConfigDir != "" {
		go func() {
			err := configwatcher.WatchConfig(a.ctx, a.ConfigDir, func(newCfg *config.Config) {
				a.services.registry.UpdateEngine(service.SessionConfigFromEngine(newCfg.Engine))
			})
			if err != nil {
				logger.Log.Error("config watcher stopped", zap.Error(err))
			}
		}()
	}
}

func (a *App) every(interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	if cfg.Database.Host != "" {
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		app.DB = db
	}

	if cfg.Redis.Host != "" {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(&cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.initServices(cfg)
	controllers := app.initControllers()

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Sessions first so their final events still reach the hub.
	a.services.registry.CloseAll()
	a.services.hub.Stop()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}
