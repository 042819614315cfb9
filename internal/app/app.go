// Package app builds the service graph shared by the API server and the TUI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/mlms/internal/advisory"
	"github.com/MrJamesThe3rd/mlms/internal/advisory/gemini"
	"github.com/MrJamesThe3rd/mlms/internal/cache"
	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/config"
	"github.com/MrJamesThe3rd/mlms/internal/database"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
	"github.com/MrJamesThe3rd/mlms/internal/report"
	"github.com/MrJamesThe3rd/mlms/internal/seed"
	"github.com/MrJamesThe3rd/mlms/internal/storage"
)

type App struct {
	Cache    cache.Cache
	Advisory *advisory.Service
	Clients  *client.Service
	Loans    *loan.Service
	Reports  *report.Service

	db    *sql.DB
	redis *redis.Client
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.New(cfg.DB.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{db: db}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		a.redis = rdb
		a.Cache = cache.NewRedis(rdb)
	} else {
		a.Cache = cache.NewMemory()
	}

	var model advisory.Model
	if cfg.Advisory.APIKey != "" {
		m, err := gemini.New(ctx, cfg.Advisory.APIKey, cfg.Advisory.Model, gemini.WithBaseURL(cfg.Advisory.BaseURL))
		if err != nil {
			_ = a.Close()
			return nil, err
		}

		model = m
	} else {
		slog.Warn("GEMINI_API_KEY not set, advisory answers will use fallbacks")
	}

	clientRepo := storage.NewCollection[client.Client](db, "clients")
	loanRepo := storage.NewCollection[loan.Loan](db, "loans")

	if cfg.App.SeedDemo {
		if _, err := seed.Run(ctx, clientRepo, loanRepo); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("seeding demo data: %w", err)
		}
	}

	a.Advisory = advisory.NewService(model, a.Cache, cfg.Advisory.Timeout)
	a.Clients = client.NewService(clientRepo, a.Advisory, client.WithBatchTimeout(cfg.Advisory.Timeout))
	a.Loans = loan.NewService(loanRepo, a.Clients, a.Cache)
	a.Reports = report.NewService(a.Clients, a.Loans)

	slog.Info("services ready",
		"driver", cfg.DB.Driver,
		"cache", cacheKind(a.redis),
		"advisory_model", model != nil,
	)

	return a, nil
}

func (a *App) Close() error {
	var errs []error

	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}

	errs = append(errs, a.db.Close())

	return errors.Join(errs...)
}

func cacheKind(rdb *redis.Client) string {
	if rdb != nil {
		return "redis"
	}

	return "memory"
}
