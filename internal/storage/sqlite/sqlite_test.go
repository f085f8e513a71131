package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"profilekeeper/internal/domain"
	"profilekeeper/internal/lib/logger/sl"
	"profilekeeper/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), sl.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestCreateProfile_Defaults(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	p, err := s.CreateProfile(ctx, "Acme")
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, domain.StatusLive, p.Status)
	assert.Equal(t, "[]", p.Websites)
	assert.Equal(t, "{}", p.Payments)
	assert.Equal(t, "[]", p.Logs)

	createdAt, err := time.Parse(time.DateTime, p.CreatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), createdAt, time.Minute)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	created, err := s.CreateProfile(ctx, gofakeit.Company())
	require.NoError(t, err)

	got, err := s.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.GetProfile(ctx, created.ID+1)
	assert.ErrorIs(t, err, storage.ErrProfileNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	created, err := s.CreateProfile(ctx, "Acme")
	require.NoError(t, err)

	updated, err := s.UpdateProfile(ctx, domain.UpdateProfileRequest{
		ID:       created.ID,
		Name:     "Acme Corp",
		Status:   domain.StatusLock,
		Websites: `["https://acme.example"]`,
		Payments: `{"card":"4242"}`,
		Logs:     `[{"at":"2024-01-01"}]`,
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Acme Corp", updated.Name)
	assert.Equal(t, domain.StatusLock, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, `["https://acme.example"]`, updated.Websites)
	assert.Equal(t, `{"card":"4242"}`, updated.Payments)
	assert.Equal(t, `[{"at":"2024-01-01"}]`, updated.Logs)

	_, err = s.UpdateProfile(ctx, domain.UpdateProfileRequest{ID: 42, Name: "x", Status: domain.StatusLive})
	assert.ErrorIs(t, err, storage.ErrProfileNotFound)
}

func TestDeleteProfile_OnlyRemovesThatRow(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	for i := 0; i < 5; i++ {
		_, err := s.CreateProfile(ctx, gofakeit.Name())
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteProfile(ctx, 3))

	profiles, err := s.ListProfiles(ctx)
	require.NoError(t, err)

	ids := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{5, 4, 2, 1}, ids)

	assert.ErrorIs(t, s.DeleteProfile(ctx, 3), storage.ErrProfileNotFound)
}

func TestIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	p1, err := s.CreateProfile(ctx, "first")
	require.NoError(t, err)
	require.NoError(t, s.DeleteProfile(ctx, p1.ID))

	p2, err := s.CreateProfile(ctx, "second")
	require.NoError(t, err)
	assert.Greater(t, p2.ID, p1.ID)
}

func TestListProfiles_Empty(t *testing.T) {
	profiles, err := newStorage(t).ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestSerializeRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStorage(t)

	for i := 0; i < 3; i++ {
		_, err := src.CreateProfile(ctx, gofakeit.Company())
		require.NoError(t, err)
	}
	_, err := src.UpdateProfile(ctx, domain.UpdateProfileRequest{
		ID: 2, Name: "edited", Status: domain.StatusLock, Websites: "[]", Payments: "{}", Logs: "[]",
	})
	require.NoError(t, err)

	want, err := src.ListProfiles(ctx)
	require.NoError(t, err)

	image, err := src.Serialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(image[:16]))

	// Restore must replace whatever the destination held before.
	dst := newStorage(t)
	_, err = dst.CreateProfile(ctx, "stale")
	require.NoError(t, err)

	require.NoError(t, dst.Restore(ctx, image))

	got, err := dst.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The autoincrement sequence travels with the image.
	next, err := dst.CreateProfile(ctx, "next")
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID)
}

func TestRestore_IntoUninitializedDatabase(t *testing.T) {
	ctx := context.Background()
	src := newStorage(t)

	_, err := src.CreateProfile(ctx, "Acme")
	require.NoError(t, err)
	image, err := src.Serialize(ctx)
	require.NoError(t, err)

	dst, err := New(ctx, sl.Discard())
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, dst.Restore(ctx, image))

	p, err := dst.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Name)
}

func TestRestore_InvalidImageLeavesDatabaseUntouched(t *testing.T) {
	ctx := context.Background()

	other := newStorage(t)
	_, err := other.handle().ExecContext(ctx, `DROP TABLE profiles; CREATE TABLE notes (body TEXT)`)
	require.NoError(t, err)
	noProfiles, err := other.Serialize(ctx)
	require.NoError(t, err)

	tests := []struct {
		name  string
		image []byte
	}{
		{name: "empty", image: nil},
		{name: "not sqlite", image: []byte("hello, world")},
		{name: "header only", image: []byte("SQLite format 3\x00")},
		{name: "corrupt body", image: append([]byte("SQLite format 3\x00"), make([]byte, 4080)...)},
		{name: "no profiles table", image: noProfiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStorage(t)
			created, err := s.CreateProfile(ctx, "keep me")
			require.NoError(t, err)

			err = s.Restore(ctx, tt.image)
			require.ErrorIs(t, err, storage.ErrInvalidImage)

			got, err := s.GetProfile(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	}
}

func TestScanProfile_NullColumns(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	_, err := s.handle().ExecContext(ctx, `INSERT INTO profiles (name) VALUES ('bare')`)
	require.NoError(t, err)

	p, err := s.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "bare", p.Name)
	assert.Empty(t, p.Status)
	assert.Empty(t, p.Websites)
}

// fileImage builds a database file the way another SQLite tool would and
// returns its bytes.
func fileImage(t *testing.T, pragmas ...string) []byte {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "profiles.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		_, err := db.ExecContext(ctx, pragma)
		require.NoError(t, err)
	}
	_, err = db.ExecContext(ctx, schema)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = db.ExecContext(ctx,
			`INSERT INTO profiles (name, status, created_at, websites, payments, logs)
			 VALUES (?, 'live', datetime('now'), '[]', '{}', '[]')`, fmt.Sprintf("profile %d", i))
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	image, err := os.ReadFile(path)
	require.NoError(t, err)
	return image
}

func TestRestore_ForeignFiles(t *testing.T) {
	tests := []struct {
		name     string
		pragmas  []string
		pageSize int
	}{
		{name: "default", pageSize: 4096},
		{name: "page size 8192", pragmas: []string{"PRAGMA page_size = 8192"}, pageSize: 8192},
		{name: "page size 1024", pragmas: []string{"PRAGMA page_size = 1024"}, pageSize: 1024},
		{name: "wal mode", pragmas: []string{"PRAGMA journal_mode = WAL"}, pageSize: 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			image := fileImage(t, tt.pragmas...)
			require.Equal(t, tt.pageSize, int(binary.BigEndian.Uint16(image[16:18])))

			s := newStorage(t)
			_, err := s.CreateProfile(ctx, "replaced")
			require.NoError(t, err)

			require.NoError(t, s.Restore(ctx, image))

			profiles, err := s.ListProfiles(ctx)
			require.NoError(t, err)
			require.Len(t, profiles, 50)
			assert.Equal(t, "profile 49", profiles[0].Name)

			// The restored database keeps growing and round-trips.
			for i := 0; i < 200; i++ {
				_, err := s.CreateProfile(ctx, gofakeit.Sentence(20))
				require.NoError(t, err)
			}

			out, err := s.Serialize(ctx)
			require.NoError(t, err)

			again := newStorage(t)
			require.NoError(t, again.Restore(ctx, out))
			profiles, err = again.ListProfiles(ctx)
			require.NoError(t, err)
			assert.Len(t, profiles, 250)
		})
	}
}

func TestRestore_WALHeaderIsNotModifiedInPlace(t *testing.T) {
	image := fileImage(t, "PRAGMA journal_mode = WAL")
	require.Equal(t, []byte{2, 2}, image[18:20])

	require.NoError(t, newStorage(t).Restore(context.Background(), image))
	assert.Equal(t, []byte{2, 2}, image[18:20])
}
