// Package app assembles the stores and services behind the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"teamboard/internal/achievements"
	"teamboard/internal/auth"
	"teamboard/internal/categories"
	"teamboard/internal/colors"
	"teamboard/internal/config"
	"teamboard/internal/dashboard"
	"teamboard/internal/groups"
	"teamboard/internal/session"
	"teamboard/internal/sharedfiles"
	"teamboard/internal/storage"
	"teamboard/internal/storage/filestore"
	"teamboard/internal/storage/postgres"
	"teamboard/internal/storage/redisstore"
	"teamboard/internal/storage/sqlite"
	"teamboard/internal/tasks"
	"teamboard/internal/team"
)

type App struct {
	Config config.Config
	Logger *slog.Logger
	KV     storage.KV

	Tasks        *tasks.Store
	Members      *team.Store
	Groups       *groups.Store
	Achievements *achievements.Service
	Tracker      *achievements.Tracker
	MemberColors *colors.Service
	GroupColors  *colors.Service
	Auth         *auth.Service
	Session      *session.Timer
	Files        *sharedfiles.Store
	Dashboard    *dashboard.Service
	// Categories is nil when no category API is configured.
	Categories *categories.Store
}

// OpenStorage opens the backend named by cfg.Driver.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.KV, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.Path, logger)
	case config.DriverFile:
		return filestore.Open(cfg.Dir)
	case config.DriverRedis:
		return redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN, cfg.PostgresTable, logger)
	case config.DriverMemory:
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// New opens storage and assembles the application.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	kv, err := OpenStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	a, err := NewWithKV(ctx, cfg, kv, logger)
	if err != nil {
		return nil, errors.Join(err, kv.Close())
	}
	return a, nil
}

// NewWithKV assembles the application on an already open backend, loads
// every collection and runs one full achievement evaluation.
func NewWithKV(ctx context.Context, cfg config.Config, kv storage.KV, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:       cfg,
		Logger:       logger,
		KV:           kv,
		Tasks:        tasks.New(kv, logger.With("store", "tasks")),
		Members:      team.New(kv, logger.With("store", "members")),
		Groups:       groups.New(kv, logger.With("store", "groups")),
		Achievements: achievements.New(kv, logger.With("store", "achievements")),
		MemberColors: colors.NewService(),
		GroupColors:  colors.NewService(),
		Auth: auth.New(kv, auth.Config{
			Secret:   cfg.Auth.Secret,
			TokenTTL: cfg.Auth.TokenTTL,
			Latency:  cfg.Auth.Latency,
			Timeout:  cfg.Auth.Timeout,
		}, logger.With("component", "auth")),
		Session: session.NewTimer(),
		Files:   sharedfiles.New(kv, logger.With("store", "files")),
	}

	a.Tasks.Load(ctx)
	if err := a.Members.Load(ctx, !cfg.SkipSeed); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	a.Groups.Load(ctx)
	a.Achievements.Load(ctx)
	a.Auth.Load(ctx)
	a.Files.Load(ctx)

	a.Tracker = achievements.NewTracker(a.Achievements, a.Tasks, a.Members, logger.With("component", "tracker"))
	a.Tracker.Start(ctx)
	awarded, err := a.Tracker.EvaluateAll(ctx)
	if err != nil {
		a.Tracker.Stop()
		return nil, fmt.Errorf("evaluate achievements: %w", err)
	}
	if len(awarded) > 0 {
		logger.Info("achievements awarded at startup", slog.Int("count", len(awarded)))
	}

	a.Dashboard = dashboard.New(a.Tasks, a.Members, a.Achievements)

	if cfg.Categories.BaseURL != "" {
		client := categories.NewClient(cfg.Categories.BaseURL, &http.Client{Timeout: cfg.Categories.Timeout})
		a.Categories = categories.NewStore(client, logger.With("component", "categories"),
			categories.WithRetries(cfg.Categories.Retries))
		go func() {
			if err := a.Categories.Load(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("initial category load failed", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("application ready",
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("tasks", a.Tasks.Count()),
		slog.Int("members", a.Members.Count()),
	)
	return a, nil
}

// Close stops change tracking and closes the storage backend.
func (a *App) Close() error {
	a.Tracker.Stop()
	return a.KV.Close()
}
