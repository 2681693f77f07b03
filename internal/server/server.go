package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/bitfantasy/procurement/internal/config"
	"github.com/bitfantasy/procurement/internal/database"
	"github.com/bitfantasy/procurement/internal/metrics"
	"github.com/bitfantasy/procurement/internal/middleware"
	"github.com/bitfantasy/procurement/internal/procurement/handler"
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Deps 路由依赖
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Services *service.Services
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewRouter 创建路由
func NewRouter(d Deps) *gin.Engine {
	if d.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
	}
	// xlsx 本身已压缩
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{path.Join("/", d.Config.Server.BasePath, "purchase-orders/export")})))
	router.NoRoute(middleware.NotFound())

	registerRoutes(router, d)
	return router
}

func registerRoutes(r *gin.Engine, d Deps) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), d.DB); err != nil {
			d.Logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group(d.Config.Server.BasePath)
	handler.NewHandlers(d.Services).RegisterRoutes(api)
}

// Run 启动HTTP服务，ctx 结束后优雅关闭
func Run(ctx context.Context, cfg config.ServerConfig, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.Int("port", cfg.Port), zap.String("base_path", cfg.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("Server exited")
	return nil
}
