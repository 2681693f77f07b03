package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/procurement/internal/cache"
	"github.com/bitfantasy/procurement/internal/config"
	"github.com/bitfantasy/procurement/internal/metrics"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/bitfantasy/procurement/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("Starting procurement service",
		zap.String("version", server.Version),
		zap.String("build_time", server.BuildTime),
	)

	var m *metrics.Metrics
	if a.cfg.Metrics.Enabled {
		m = metrics.New(a.cfg.Metrics.Namespace)
	}

	// 统计缓存
	var c cache.Cache
	if a.cfg.Redis.Enabled {
		rdb := initRedis(a.cfg.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.logger.Warn("Redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			c = cache.NewRedisCache(rdb, "procurement:")
			a.logger.Info("Analytics cache enabled", zap.String("addr", a.cfg.Redis.Addr()))
		}
	}

	services := service.NewServices(a.db, repository.NewRepositories(a.db), c, a.cfg.Redis.TTL, m, a.logger)

	router := server.NewRouter(server.Deps{
		Config:   a.cfg,
		DB:       a.db,
		Services: services,
		Metrics:  m,
		Logger:   a.logger,
	})

	return server.Run(ctx, a.cfg.Server, router, a.logger)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
