package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/mlms/internal/app"
	"github.com/MrJamesThe3rd/mlms/internal/auth"
	"github.com/MrJamesThe3rd/mlms/internal/client/importer"
	"github.com/MrJamesThe3rd/mlms/internal/config"
	mlmsHttp "github.com/MrJamesThe3rd/mlms/internal/http"
	assistantHandler "github.com/MrJamesThe3rd/mlms/internal/http/assistant"
	authHandler "github.com/MrJamesThe3rd/mlms/internal/http/auth"
	clientHandler "github.com/MrJamesThe3rd/mlms/internal/http/client"
	loanHandler "github.com/MrJamesThe3rd/mlms/internal/http/loan"
	reportHandler "github.com/MrJamesThe3rd/mlms/internal/http/report"
	"github.com/MrJamesThe3rd/mlms/internal/logger"
	"github.com/MrJamesThe3rd/mlms/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.App.LogLevel, os.Stdout)

	if cfg.Auth.Secret == "change-me" {
		slog.Warn("AUTH_SECRET is the default value, set it before exposing the server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	users, err := auth.DemoUsers()
	if err != nil {
		return err
	}

	authService := auth.NewService(users, cfg.Auth.Secret, cfg.Auth.SessionTimeout)

	sweeps, err := scheduler.New(cfg.Sweep.Schedule, services.Loans, cfg.Server.Timeout)
	if err != nil {
		return err
	}

	// Catch up on anything that fell due while the server was down.
	sweeps.Sweep()
	sweeps.Start()
	slog.Info("overdue sweep scheduled", "schedule", cfg.Sweep.Schedule, "next", sweeps.Next())

	router := mlmsHttp.New(mlmsHttp.Handlers{
		Auth:      authHandler.NewHandler(authService),
		Clients:   clientHandler.NewHandler(services.Clients, services.Loans, importer.NewParser()),
		Loans:     loanHandler.NewHandler(services.Loans, services.Clients, services.Advisory),
		Reports:   reportHandler.NewHandler(services.Reports),
		Assistant: assistantHandler.NewHandler(services.Advisory),
	}, authService, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + cfg.Advisory.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	sweeps.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}
