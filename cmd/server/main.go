package main // Entry point package

import (
	"context"   // Context for startup and shutdown
	"errors"    // Matching the server closed sentinel
	"net/http"  // http.ErrServerClosed
	"os"        // Signals and directories
	"os/signal" // Shutdown on SIGINT/SIGTERM
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	goredis "github.com/redis/go-redis/v9"

	"github.com/iliyamo/seating-chart/internal/config"   // Internal config loader
	"github.com/iliyamo/seating-chart/internal/database" // MySQL connection pool
	"github.com/iliyamo/seating-chart/internal/handler"
	"github.com/iliyamo/seating-chart/internal/idgen"
	"github.com/iliyamo/seating-chart/internal/middleware"
	"github.com/iliyamo/seating-chart/internal/queue"
	"github.com/iliyamo/seating-chart/internal/registry"
	"github.com/iliyamo/seating-chart/internal/router" // Internal router setup
	"github.com/iliyamo/seating-chart/internal/service"
	"github.com/iliyamo/seating-chart/internal/store"
	"github.com/iliyamo/seating-chart/internal/store/memory"
	mysqlstore "github.com/iliyamo/seating-chart/internal/store/mysql"
	redisstore "github.com/iliyamo/seating-chart/internal/store/redis"
	"github.com/iliyamo/seating-chart/pkg/logger"
)

func main() {
	cfg := config.Load() // Load environment config
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis serves the limiter and, when selected, the item store.  The
	// limiter works without it.
	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	st, closeStore := openStore(ctx, cfg, rdb)
	defer closeStore()

	ids := idgen.UUIDv7{}
	seats := registry.New(st, ids, registry.WithGrace(cfg.ClaimGrace))

	var opts []service.Option
	if cfg.EventsEnabled {
		pub := service.NewAMQPPublisher(cfg.RabbitURL)
		defer pub.Close()
		opts = append(opts, service.WithEvents(pub))
		startAuditor(ctx, cfg)
	}
	svc := service.NewChartService(st, seats, ids, opts...)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(logger.EchoLogger())
	router.RegisterRoutes(e, st) // Register probes

	var limiter echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.NewTokenBucket(cfg.RateLimit, rdb)
	}
	router.RegisterChart(e, handler.NewChartHandler(svc), cfg.JWTSecret, limiter)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	addr := ":" + cfg.Port // Address string with port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// openStore selects the item store named by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.Config, rdb *goredis.Client) (store.Store, func()) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := database.Open(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("mysql connect failed")
		}
		s := mysqlstore.New(db)
		if err := s.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("mysql migrate failed")
		}
		return s, func() { _ = db.Close() }
	case config.StoreRedis:
		if rdb == nil {
			logger.Fatal().Msg("STORE_DRIVER=redis needs a reachable redis")
		}
		return redisstore.New(rdb, cfg.Redis.Prefix), func() {}
	}
	logger.Warn().Msg("using the in-memory store; data is lost on restart")
	return memory.New(), func() {}
}

// startAuditor runs the audit consumer until ctx ends.
func startAuditor(ctx context.Context, cfg config.Config) {
	auditor, f, err := queue.OpenAuditFile(cfg.AuditLogPath)
	if err != nil {
		logger.Error().Err(err).Msg("audit log open failed")
		return
	}
	go func() {
		defer f.Close()
		if err := queue.StartSeatingConsumer(ctx, cfg.RabbitURL, auditor); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("audit consumer stopped")
		}
	}()
}
