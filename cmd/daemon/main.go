// SPDX-License-Identifier: MIT

// Command daemon runs the TeleTable coordinator: the HTTP/WebSocket API,
// the UDP discovery listener and the lock-expiry sweeper.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/teletable/backend/internal/api"
	"github.com/teletable/backend/internal/cache"
	"github.com/teletable/backend/internal/config"
	"github.com/teletable/backend/internal/diary"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/robot"
	"github.com/teletable/backend/internal/users"
)

func main() {
	if err := run(); err != nil {
		base := log.Base()
		base.Error().Err(err).Msg("daemon exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "teletable"})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// KV tier: Redis when configured, otherwise a process-local cache.
	var kv cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, log.WithComponent("cache"))
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		kv = rc
	} else {
		mc := cache.NewMemoryCache(time.Minute)
		defer mc.Close()
		kv = mc
		logger.Warn().Msg("REDIS_URL not set, using in-process cache")
	}

	// Persistence is optional: without DATABASE_URL the user and diary
	// endpoints answer 503 while robot control keeps working.
	var (
		userStore  *users.Store
		diaryStore *diary.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		logger.Info().Msg("connected to Postgres")
		userStore = users.NewStore(pool, kv, config.UserCacheTTL)
		diaryStore = diary.NewStore(pool, kv, config.DiaryCacheTTL)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, user and diary endpoints disabled")
	}

	store := robot.NewStore(config.StaleTimeout)
	bus := robot.NewBus()
	defer bus.Close()
	controller := robot.NewController(store, bus, config.LockTTL)

	robotHTTP := &http.Client{Timeout: config.RobotHTTPTimeout}
	nodes := robot.NewNodeFetcher(store, kv, robotHTTP, config.NodeCacheTTL)

	server := api.New(api.Deps{
		Config:     cfg,
		Controller: controller,
		Bus:        bus,
		Nodes:      nodes,
		Users:      userStore,
		Diaries:    diaryStore,
		RobotHTTP:  robotHTTP,
	})

	httpServer := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		controller.RunSweeper(gctx, config.SweepInterval)
		return nil
	})

	g.Go(func() error {
		return robot.RunDiscovery(gctx, store, config.DiscoveryPort)
	})

	g.Go(func() error {
		logger.Info().Str("addr", cfg.ServerAddress).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info().Msg("daemon stopped")
	return err
}
