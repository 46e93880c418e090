package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/taskboard/internal/config"
	"github.com/baharkarakas/taskboard/internal/db"
	"github.com/baharkarakas/taskboard/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		slog.SetDefault(logger.New(cfg.Env))

		pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if err := db.RunMigrations(cmd.Context(), pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
		return nil
	},
}
