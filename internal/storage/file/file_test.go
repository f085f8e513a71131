package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"profilekeeper/internal/lib/logger/sl"
	"profilekeeper/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "blobs"), sl.Discard())
	require.NoError(t, err)
	s.debounce = 20 * time.Millisecond
	return s
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	_, err := s.Get(ctx, "profiles")
	require.ErrorIs(t, err, storage.ErrBlobNotFound)

	require.NoError(t, s.Put(ctx, "profiles", []byte("first")))
	require.NoError(t, s.Put(ctx, "profiles", []byte("second")))

	data, err := s.Get(ctx, "profiles")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	assert.FileExists(t, s.Path("profiles"))
}

func TestPut_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Put(ctx, "profiles", []byte{byte(i)}))
	}

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "profiles.sqlite", entries[0].Name())
}

func TestInvalidKey(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	for _, key := range []string{"", ".", "..", "../escape", `a\b`} {
		assert.Error(t, s.Put(ctx, key, []byte("x")), key)
		_, err := s.Get(ctx, key)
		assert.Error(t, err, key)
	}
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newStorage(t)

	changes := make(chan struct{}, 4)
	require.NoError(t, s.Watch(ctx, "profiles", func(context.Context) { changes <- struct{}{} }))

	require.NoError(t, s.Put(ctx, "profiles", []byte("own write")))

	select {
	case <-changes:
		t.Fatal("own write reported as external change")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_DetectsExternalReplace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newStorage(t)

	require.NoError(t, s.Put(ctx, "profiles", []byte("v1")))

	changes := make(chan struct{}, 4)
	require.NoError(t, s.Watch(ctx, "profiles", func(context.Context) { changes <- struct{}{} }))

	// Another process sharing the directory.
	other, err := New(s.dir, sl.Discard())
	require.NoError(t, err)
	require.NoError(t, other.Put(ctx, "profiles", []byte("v2")))

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("external replace not reported")
	}
}

func TestChangedExternally(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.Put(ctx, "profiles", []byte("v1")))
	assert.False(t, s.changedExternally("profiles"))

	require.NoError(t, os.WriteFile(s.Path("profiles"), []byte("v2"), 0o600))
	assert.True(t, s.changedExternally("profiles"))
	// The new content is now known.
	assert.False(t, s.changedExternally("profiles"))
}
