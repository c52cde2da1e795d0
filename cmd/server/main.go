package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"settlehub/internal/cache"
	"settlehub/internal/config"
	"settlehub/internal/httpapi"
	"settlehub/internal/lock"
	"settlehub/internal/logging"
	"settlehub/internal/service"
	"settlehub/internal/store"
	"settlehub/internal/store/memory"
	pgstore "settlehub/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatalf("postgres migration failed: %v", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		seeded, err := memory.NewSeeded(logger)
		if err != nil {
			logger.Fatalf("seed in-memory store: %v", err)
		}
		repo = seeded
		logger.Info("repository: in-memory")
	}

	var dashboardCache cache.DashboardCache = cache.NewMemoryDashboardCache()
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warnf("redis unavailable (%v), using in-process cache and commit lock", err)
			_ = redisCache.Close()
		} else {
			dashboardCache = redisCache
			locker = lock.NewRedisLocker(redisCache.Client(), "settlehub:lock:")
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis, commit lock: redis")
		}
	} else {
		logger.Info("cache: memory, commit lock: local")
	}

	svc := service.New(repo, service.Options{
		Logger:        logger,
		Cache:         dashboardCache,
		DashboardTTL:  cfg.DashboardCacheTTL(),
		Locker:        locker,
		CommitLockTTL: cfg.CommitLockTTL(),
		Location:      cfg.Location(),
	})
	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, logger, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infof("settlement backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Errorf("close error: %v", err)
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" && cfg.DatabaseURL != "" {
		return fmt.Errorf("ALLOWED_ORIGIN must name the dashboard origin when DATABASE_URL is set")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid location: %w", cfg.Timezone, err)
	}
	return nil
}
