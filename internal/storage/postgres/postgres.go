package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"profilekeeper/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsTable = "blob_migrations"

type Storage struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

// Config builds the pool configuration. One process writes one snapshot at a
// time, so the pool stays small.
func Config(dsn string) (*pgxpool.Config, error) {
	const defaultMaxConns = int32(4)
	const defaultMinConns = int32(0)
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 30
	const defaultHealthCheckPeriod = time.Minute
	const defaultConnectTimeout = time.Second * 5

	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	dbConfig.MaxConns = defaultMaxConns
	dbConfig.MinConns = defaultMinConns
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig, nil
}

func New(ctx context.Context, dsn string, log *slog.Logger) (*Storage, error) {
	const op = "storage.postgres.New"

	if err := Migrate(dsn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg, err := Config(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db, log: log}, nil
}

// Migrate applies the embedded migrations.
func Migrate(dsn string) error {
	const op = "storage.postgres.Migrate"

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// migrateURL rewrites a postgres:// DSN for the pgx/v5 migrate driver.
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			dsn = "pgx5://" + strings.TrimPrefix(dsn, scheme)
			break
		}
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "x-migrations-table=" + migrationsTable
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.postgres.Get"

	var data []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM blobs WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrBlobNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	const op = "storage.postgres.Put"

	query := `
		INSERT INTO blobs (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("Blob stored", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}
