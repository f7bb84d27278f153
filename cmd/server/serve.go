package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/cache"
	"github.com/iliyamo/club-table-reservation/internal/clock"
	"github.com/iliyamo/club-table-reservation/internal/config"
	"github.com/iliyamo/club-table-reservation/internal/database"
	"github.com/iliyamo/club-table-reservation/internal/handler"
	"github.com/iliyamo/club-table-reservation/internal/metrics"
	"github.com/iliyamo/club-table-reservation/internal/middleware"
	"github.com/iliyamo/club-table-reservation/internal/queue"
	"github.com/iliyamo/club-table-reservation/internal/realtime"
	"github.com/iliyamo/club-table-reservation/internal/repository"
	"github.com/iliyamo/club-table-reservation/internal/router"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

func serve(ctx context.Context, cfg config.Config, logger pslog.Logger) error {
	logger = logger.With("instance", cfg.InstanceID)
	logger.Info("server.starting", "env", cfg.Env, "port", cfg.Port, "bus", cfg.Bus.Driver)

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Redis backs the cache and the rate limiter; both are optional.
	var rdb *redis.Client
	if cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis.unavailable", "addr", cfg.Redis.Addr, "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	bus, err := openBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	m := metrics.New()
	clk := clock.NewSystem()

	var tableCache cache.Cache
	if rdb != nil && cfg.Cache.Enabled {
		tableCache = cache.NewRedisCache(rdb, cfg.Cache.Prefix)
	}
	coordinator := service.NewCoordinator(
		repository.NewReservationStore(db),
		tableCache,
		bus,
		service.WithClock(clk),
		service.WithLogger(logger.With("component", "coordinator")),
		service.WithMetrics(m),
		service.WithStoreTimeout(cfg.StoreTimeout),
		service.WithCacheTimeout(cfg.CacheTimeout),
		service.WithCacheTTL(cfg.Cache.TTL),
	)

	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	ticketSvc := service.NewTicketService(tickets, events, clk, logger.With("component", "tickets"))
	reporter := service.NewReporter(
		repository.NewReservationRepo(db),
		tickets,
		repository.NewReportRepo(db),
		cfg.Report.TicketPrice,
		clk,
		logger.With("component", "report"),
	)
	hub := realtime.NewHub(logger.With("component", "realtime"), m)

	var limiter redis.Scripter
	if rdb != nil {
		limiter = rdb
	}
	health := &handler.Health{
		Required: map[string]handler.Check{"db": db.PingContext},
		Optional: map[string]handler.Check{},
	}
	if rdb != nil {
		health.Optional["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, router.Deps{
		Health:    health,
		Tables:    handler.NewTableHandler(coordinator),
		Catalog:   &handler.CatalogHandler{Clubs: repository.NewClubRepo(db), Events: events},
		Tickets:   handler.NewTicketHandler(ticketSvc),
		WS:        hub.ServeWS,
		Metrics:   m.Handler(),
		Identity:  middleware.OptionalJWT(cfg.JWTSecret),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, limiter, logger.With("component", "ratelimit")),
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(runCtx, bus)
	}()
	go func() {
		defer wg.Done()
		reporter.Run(runCtx, cfg.Report.Interval)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", ":"+cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("server.stopping")
	case err = <-errCh:
		if err != nil {
			logger.Error("server.failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("server.shutdown.failed", "error", serr)
	}
	stop()
	hub.Shutdown()
	wg.Wait()
	logger.Info("server.stopped")
	return err
}

func openBus(ctx context.Context, cfg config.Config, logger pslog.Logger) (queue.Bus, error) {
	if cfg.Bus.Driver == config.BusDriverMemory {
		logger.Warn("bus.memory", "detail", "notifications stay inside this process")
		return queue.NewMemoryBus(), nil
	}
	bus, err := queue.ConnectAMQP(ctx, cfg.Bus, cfg.InstanceID, logger.With("component", "bus"))
	if err != nil {
		return nil, fmt.Errorf("connect bus: %w", err)
	}
	return bus, nil
}

// withDB opens the database for one-shot commands.
func withDB(ctx context.Context, cfg config.Config, fn func(ctx context.Context, db *sql.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(ctx, db)
}
