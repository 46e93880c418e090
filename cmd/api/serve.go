package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/baharkarakas/taskboard/internal/api"
	"github.com/baharkarakas/taskboard/internal/auth"
	"github.com/baharkarakas/taskboard/internal/config"
	"github.com/baharkarakas/taskboard/internal/db"
	"github.com/baharkarakas/taskboard/internal/logger"
	"github.com/baharkarakas/taskboard/internal/metrics"
	repo "github.com/baharkarakas/taskboard/internal/repository"
	"github.com/baharkarakas/taskboard/internal/repository/memory"
	"github.com/baharkarakas/taskboard/internal/repository/postgres"
	"github.com/baharkarakas/taskboard/internal/services"
	"github.com/baharkarakas/taskboard/internal/worker"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)
	ctx := cmd.Context()

	repos, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.Init()
	wp := worker.NewPool(cfg.Workers)
	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	userSvc := services.NewUserService(repos.Users, tm, wp, cfg.StoreTimeout)
	taskSvc := services.NewTaskService(repos.Tasks, repos.AuditLogs, wp, cfg.StoreTimeout)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := userSvc.EnsureAdmin(ctx, "Administrator", cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.Info("bootstrap admin created", "email", cfg.AdminEmail)
		}
	}

	r := api.NewRouter(api.RouterDeps{
		Users:        userSvc,
		Tasks:        taskSvc,
		Store:        repos.Pinger,
		StoreTimeout: cfg.StoreTimeout,
		RateRPS:      cfg.RateRPS,
		CORSOrigins:  cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	// One operation so the steps run in order: stop accepting requests,
	// drain queued audit writes, then release the store.
	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"taskd": func(ctx context.Context) error {
			log.Info("shutting down...")
			err := srv.Shutdown(ctx)
			wp.Stop()
			if pool != nil {
				pool.Close()
			}
			return err
		},
	})
	if code := <-wait; code != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", code)
	}
	return nil
}

// openStore returns the configured backend. The pool is nil for the memory driver.
func openStore(ctx context.Context, cfg config.Config) (repo.Repositories, *pgxpool.Pool, error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("using in-memory store; data is lost on exit")
		return memory.NewRepositories(), nil, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return repo.Repositories{}, nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return repo.Repositories{}, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	return postgres.NewRepositories(pool), pool, nil
}
