package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"profilekeeper/internal/storage"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Storage struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
}

func New(ctx context.Context, opts Options, log *slog.Logger) (*Storage, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("Redis connected", slog.String("addr", opts.Addr))
	return NewWithClient(client, opts.Prefix, log), nil
}

func NewWithClient(client *redis.Client, prefix string, log *slog.Logger) *Storage {
	return &Storage{client: client, prefix: prefix, log: log}
}

func (s *Storage) key(key string) string { return s.prefix + key }

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.redis.Get"

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrBlobNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// Put stores data without expiry.
func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	const op = "storage.redis.Put"

	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
