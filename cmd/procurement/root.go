package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bitfantasy/procurement/internal/config"
	"github.com/bitfantasy/procurement/internal/database"
	"github.com/bitfantasy/procurement/internal/logging"
	"github.com/bitfantasy/procurement/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var envFile string

// rootCmd 不带子命令时等同 serve
var rootCmd = &cobra.Command{
	Use:   "procurement",
	Short: "Procurement back-office API",
	Long: `Procurement back-office API: vendor registry, purchase orders,
payment ledger and payables analytics on PostgreSQL.

Commands:
  serve    - Start the HTTP server (default)
  migrate  - Create or update database tables
  seed     - Load demo vendors, orders and payments`,
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// app 各子命令共享的运行环境
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func bootstrap(ctx context.Context) (*app, error) {
	// 加载 .env 文件
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("Warning: %s not found, using environment variables", envFile)
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// 初始化日志
	zapLogger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 初始化数据库
	db, err := database.Connect(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Sync()
		return nil, err
	}

	if err := database.Migrate(db); err != nil {
		zapLogger.Sync()
		return nil, err
	}

	return &app{cfg: cfg, logger: zapLogger, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	a.logger.Sync()
}
