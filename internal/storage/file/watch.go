package file

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"profilekeeper/internal/lib/logger/sl"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange whenever the blob for key is replaced by someone else,
// for instance a second process sharing the same directory. Writes made
// through Put are recognized by content hash and ignored. Bursts of events
// are coalesced. The watcher stops when ctx is done.
func (s *Storage) Watch(ctx context.Context, key string, onChange func(ctx context.Context)) error {
	const op = "storage.file.Watch"

	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// The directory, not the file: Put replaces the file by rename.
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	target := filepath.Clean(s.Path(key))
	log := s.log.With(slog.String("op", op), slog.String("path", target))

	go func() {
		defer func() { _ = w.Close() }()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					pending = time.After(s.debounce)
				}
			case <-pending:
				pending = nil
				if s.changedExternally(key) {
					log.Info("Blob replaced externally")
					onChange(ctx)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("Error watching blob", sl.Err(err))
			}
		}
	}()

	return nil
}

// changedExternally reports whether the file content differs from the last
// content this process wrote or observed, and remembers the new content.
func (s *Storage) changedExternally(key string) bool {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.written[key]; ok && prev == sum {
		return false
	}
	s.written[key] = sum
	return true
}
