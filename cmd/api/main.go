package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db"
	httpx "github.com/taskhub/taskhub/internal/http"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/ratelimit"
	"github.com/taskhub/taskhub/internal/redisclient"
	"github.com/taskhub/taskhub/internal/repo/postgres"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing is opt-in; without an endpoint the otelgin middleware is a no-op
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "taskhub", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(3 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	{
		ctx, cancel := config.WithTimeout(30 * time.Second)
		defer cancel()

		if err := db.Migrate(ctx, cfg.DBURL); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}

		if err := db.EnsureSeedUser(ctx, pool, cfg); err != nil {
			log.Error("seed user failed", "err", err)
			os.Exit(1)
		}
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	deps := httpx.Deps{
		Users:  postgres.NewUsersRepo(pool),
		Tasks:  postgres.NewTasksRepo(pool, prom),
		DBPing: pool.Ping,
		Prom:   prom,
	}

	// shared brute-force limiter when redis is configured
	if cfg.RedisAddr != "" {
		rds := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rds.Close()

		deps.RedisPing = rds.Ping
		deps.AuthLimiter = middlewares.AuthRateLimit(
			ratelimit.NewRedisLimiter(rds.Raw(), cfg.AuthRateLimit, cfg.AuthRateWindow),
		)
	} else {
		local := middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
		deps.AuthLimiter = local.RateLimiterMiddleware(middlewares.KeyByIP)
	}

	router := httpx.NewRouter(log, cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
