package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"profilekeeper/internal/domain"
	"profilekeeper/internal/lib/logger/sl"
	"profilekeeper/internal/storage"

	"github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		status TEXT,
		created_at TEXT,
		websites TEXT,
		payments TEXT,
		logs TEXT
	);
`

const profileColumns = `id, name, status, created_at, websites, payments, logs`

// imageHeader opens every SQLite database file.
var imageHeader = []byte("SQLite format 3\x00")

// Storage is an in-memory SQLite database. The whole database lives in a
// single connection, so the pool is pinned to exactly one.
type Storage struct {
	log *slog.Logger

	// mu guards db, which Restore swaps for a new database.
	mu sync.RWMutex
	db *sql.DB
}

func openMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}

	// An in-memory database is dropped together with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return db, nil
}

func New(ctx context.Context, log *slog.Logger) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := openMemory()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{log: log, db: db}, nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

func (s *Storage) handle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db
}

func (s *Storage) Init(ctx context.Context) error {
	const op = "storage.sqlite.Init"

	if _, err := s.handle().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProfile tolerates NULL columns: imported images come from elsewhere and
// the table declares no constraints.
func scanProfile(row scanner) (*domain.Profile, error) {
	var profile domain.Profile
	var name, status, createdAt, websites, payments, logs sql.NullString

	err := row.Scan(&profile.ID, &name, &status, &createdAt, &websites, &payments, &logs)
	if err != nil {
		return nil, err
	}

	profile.Name = name.String
	profile.Status = domain.Status(status.String)
	profile.CreatedAt = createdAt.String
	profile.Websites = websites.String
	profile.Payments = payments.String
	profile.Logs = logs.String

	return &profile, nil
}

func (s *Storage) CreateProfile(ctx context.Context, name string) (*domain.Profile, error) {
	const op = "storage.sqlite.CreateProfile"

	query := `
		INSERT INTO profiles (name, status, created_at, websites, payments, logs)
		VALUES (?, ?, datetime('now'), ?, ?, ?)
		RETURNING ` + profileColumns

	row := s.handle().QueryRowContext(ctx, query,
		name, domain.StatusLive, domain.DefaultWebsites, domain.DefaultPayments, domain.DefaultLogs)

	profile, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("Profile created", slog.Int64("profile_id", profile.ID))
	return profile, nil
}

func (s *Storage) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	const op = "storage.sqlite.GetProfile"

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`

	profile, err := scanProfile(s.handle().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProfileNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return profile, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	const op = "storage.sqlite.UpdateProfile"

	query := `
		UPDATE profiles
		SET name = ?, status = ?, websites = ?, payments = ?, logs = ?
		WHERE id = ?
		RETURNING ` + profileColumns

	row := s.handle().QueryRowContext(ctx, query,
		req.Name, req.Status, req.Websites, req.Payments, req.Logs, req.ID)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProfileNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("Profile updated", slog.Int64("profile_id", profile.ID))
	return profile, nil
}

func (s *Storage) DeleteProfile(ctx context.Context, id int64) error {
	const op = "storage.sqlite.DeleteProfile"

	result, err := s.handle().ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrProfileNotFound
	}

	s.log.Debug("Profile deleted", slog.Int64("profile_id", id))
	return nil
}

// ListProfiles returns every row, newest first.
func (s *Storage) ListProfiles(ctx context.Context) ([]*domain.Profile, error) {
	const op = "storage.sqlite.ListProfiles"

	rows, err := s.handle().QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: query profiles: %w", op, err)
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan profile: %w", op, err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return profiles, nil
}

func rawConn(driverConn any) (*sqlite3.SQLiteConn, error) {
	c, ok := driverConn.(*sqlite3.SQLiteConn)
	if !ok {
		return nil, fmt.Errorf("unexpected driver connection %T", driverConn)
	}
	return c, nil
}

func (s *Storage) Serialize(ctx context.Context) ([]byte, error) {
	const op = "storage.sqlite.Serialize"

	conn, err := s.handle().Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer conn.Close()

	var image []byte
	err = conn.Raw(func(driverConn any) error {
		c, err := rawConn(driverConn)
		if err != nil {
			return err
		}
		image, err = c.Serialize("main")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return image, nil
}

// Restore loads image into a scratch connection and checks that it is a
// SQLite database holding a profiles table. The image is then copied with the
// online backup API into a fresh in-memory database created with the image's
// page size, which replaces the working database. On error the working
// database is untouched.
func (s *Storage) Restore(ctx context.Context, image []byte) error {
	const op = "storage.sqlite.Restore"

	if len(image) < 100 || !bytes.HasPrefix(image, imageHeader) {
		return fmt.Errorf("%s: %w: missing sqlite header", op, storage.ErrInvalidImage)
	}

	// A file saved in WAL mode has no WAL file to go with it in memory.
	// Version bytes 1 select the rollback journal and keep the content as is.
	image = bytes.Clone(image)
	image[18], image[19] = 1, 1

	scratch, err := openMemory()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer scratch.Close()

	src, err := scratch.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer src.Close()

	err = src.Raw(func(driverConn any) error {
		c, err := rawConn(driverConn)
		if err != nil {
			return err
		}
		return c.Deserialize(image, "main")
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrInvalidImage, err)
	}

	var tables int
	err = src.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'profiles'`).Scan(&tables)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrInvalidImage, err)
	}
	if tables == 0 {
		return fmt.Errorf("%s: %w: no profiles table", op, storage.ErrInvalidImage)
	}

	var pageSize int
	if err := src.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrInvalidImage, err)
	}

	next, err := openMemory()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := fill(ctx, next, src, pageSize); err != nil {
		_ = next.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	prev := s.db
	s.db = next
	s.mu.Unlock()

	if err := prev.Close(); err != nil {
		s.log.Warn("Failed to close previous database", slog.String("op", op), sl.Err(err))
	}

	s.log.Debug("Database restored", slog.Int("bytes", len(image)), slog.Int("page_size", pageSize))
	return nil
}

// fill copies src into the empty database dst. The page size of an in-memory
// database is fixed once it holds data, so it is set before the copy.
func fill(ctx context.Context, dst *sql.DB, src *sql.Conn, pageSize int) error {
	conn, err := dst.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA page_size = %d", pageSize)); err != nil {
		return err
	}

	return conn.Raw(func(dstConn any) error {
		return src.Raw(func(srcConn any) error {
			to, err := rawConn(dstConn)
			if err != nil {
				return err
			}
			from, err := rawConn(srcConn)
			if err != nil {
				return err
			}
			return copyDatabase(to, from)
		})
	})
}

func copyDatabase(to, from *sqlite3.SQLiteConn) error {
	backup, err := to.Backup("main", from, "main")
	if err != nil {
		return err
	}

	for {
		done, err := backup.Step(-1)
		if err != nil {
			_ = backup.Finish()
			return err
		}
		if done {
			break
		}
	}

	return backup.Finish()
}
