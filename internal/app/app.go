package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	grpcapp "profilekeeper/internal/app/grpc"
	"profilekeeper/internal/config"
	httpserver "profilekeeper/internal/http"
	"profilekeeper/internal/lib/launcher"
	"profilekeeper/internal/lib/logger/sl"
	"profilekeeper/internal/services/profile"
	"profilekeeper/internal/storage"
	"profilekeeper/internal/storage/file"
	"profilekeeper/internal/storage/postgres"
	"profilekeeper/internal/storage/redis"
	"profilekeeper/internal/storage/sqlite"
)

type App struct {
	GRPCServer *grpcapp.App
	HTTPServer *httpserver.Server
	Profiles   *profile.Service
	Storage    *sqlite.Storage
	Blobs      storage.BlobStore
	cfg        *config.Config
	log        *slog.Logger
}

// New wires the working database, the durable store, the profile service
// and both transports. Nothing is loaded or served yet.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	db, err := sqlite.New(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	blobs, err := newBlobStore(ctx, cfg.Store, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profileService := profile.New(log, db, blobs, cfg.Store.Key, newLauncher(cfg.Launcher, log))

	return &App{
		GRPCServer: grpcapp.New(log, profileService, cfg.GRPC.Port, cfg.GRPC.Timeout),
		HTTPServer: httpserver.NewServer(cfg.HTTPServer, profileService, log),
		Profiles:   profileService,
		Storage:    db,
		Blobs:      blobs,
		cfg:        cfg,
		log:        log,
	}, nil
}

func newBlobStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (storage.BlobStore, error) {
	switch cfg.Driver {
	case config.DriverFile:
		return file.New(cfg.Dir, log)
	case config.DriverRedis:
		return redis.New(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, log)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.Postgres.DSN, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newLauncher(cfg config.LauncherConfig, log *slog.Logger) launcher.Launcher {
	if cfg.Command == "" {
		return launcher.NewLog(log)
	}
	return launcher.NewExec(cfg.Command, cfg.Args, log)
}

// Load restores the working database from the durable store.
func (a *App) Load(ctx context.Context) error {
	return a.Profiles.Load(ctx)
}

// Watch reloads the working database whenever another process replaces the
// stored snapshot. Only the file store can be watched.
func (a *App) Watch(ctx context.Context) error {
	if !a.cfg.Store.Watch {
		return nil
	}

	fs, ok := a.Blobs.(*file.Storage)
	if !ok {
		return errors.New("app.Watch: store does not support watching")
	}

	return fs.Watch(ctx, a.cfg.Store.Key, func(ctx context.Context) {
		if err := a.Profiles.Reload(ctx); err != nil {
			a.log.Error("failed to reload snapshot", sl.Err(err))
		}
	})
}

func (a *App) CloseStorage() error {
	var errs []error

	if a.Blobs != nil {
		errs = append(errs, a.Blobs.Close())
	}
	if a.Storage != nil {
		errs = append(errs, a.Storage.Close())
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.log.Info("closed storage")
	return nil
}
