// Package file keeps blobs as files in a single directory, one file per key.
//
// Put writes to a temporary file in the same directory and renames it over
// the target, so readers see either the previous blob or the new one.
package file

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"profilekeeper/internal/storage"
)

const fileExt = ".sqlite"

type Storage struct {
	dir      string
	log      *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	written map[string][sha256.Size]byte
}

func New(dir string, log *slog.Logger) (*Storage, error) {
	const op = "storage.file.New"

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		dir:      dir,
		log:      log,
		debounce: 200 * time.Millisecond,
		written:  make(map[string][sha256.Size]byte),
	}, nil
}

func (s *Storage) Close() error {
	return nil
}

// Path returns the file holding key.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.file.Get"

	if err := validKey(key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrBlobNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	const op = "storage.file.Put"

	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(err, tmp.Close(), os.Remove(tmpPath)))
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(err, tmp.Close(), os.Remove(tmpPath)))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(err, os.Remove(tmpPath)))
	}

	// Record the hash before the rename so the watcher never mistakes our own
	// write for a foreign one.
	s.mu.Lock()
	s.written[key] = sha256.Sum256(data)
	s.mu.Unlock()

	if err := os.Rename(tmpPath, s.Path(key)); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(err, os.Remove(tmpPath)))
	}

	return nil
}
