package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profilekeeper/internal/app"
	"profilekeeper/internal/config"
	"profilekeeper/internal/lib/logger/sl"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Error loading .env file", sl.Err(err))
	}
	cfg := config.MustLoad()

	// Initialize logger
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize app
	application, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	// The working database must be loaded before anything is served.
	if err := application.Load(ctx); err != nil {
		log.Error("failed to load profiles", sl.Err(err))
		_ = application.CloseStorage()
		os.Exit(1)
	}

	grp, grpCtx := errgroup.WithContext(ctx)

	if err := application.Watch(grpCtx); err != nil {
		log.Error("failed to watch store", sl.Err(err))
	}

	// Launch gRPC
	grp.Go(func() error {
		log.Info("starting gRPC server", slog.Int("port", cfg.GRPC.Port))

		errChan := make(chan error, 1)
		go func() {
			errChan <- application.GRPCServer.Run()
		}()

		select {
		case <-grpCtx.Done():
			application.GRPCServer.Stop()
			return grpCtx.Err()
		case err := <-errChan:
			return err
		}
	})

	// Launch HTTP
	grp.Go(func() error {
		log.Info("starting HTTP server", slog.String("addr", cfg.HTTPServer.Address))

		errChan := make(chan error, 1)
		go func() {
			errChan <- application.HTTPServer.Run()
		}()

		select {
		case <-grpCtx.Done():
			// graceful shutdown of the HTTP server
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			return application.HTTPServer.Stop(shutdownCtx)
		case err := <-errChan:
			return err
		}
	})

	// wait for all goroutines to finish
	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", sl.Err(err))
	}

	if err := application.CloseStorage(); err != nil {
		log.Error("failed to close storage", sl.Err(err))
	}
	log.Info("Gracefully stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05.000",
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		}))
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
