package storage

import (
	"context"
	"errors"

	"profilekeeper/internal/domain"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrBlobNotFound    = errors.New("blob not found")
	ErrInvalidImage    = errors.New("invalid database image")
)

// ProfileStorage is the working database holding the profiles table.
type ProfileStorage interface {
	Init(ctx context.Context) error
	CreateProfile(ctx context.Context, name string) (*domain.Profile, error)
	GetProfile(ctx context.Context, id int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, id int64) error
	ListProfiles(ctx context.Context) ([]*domain.Profile, error)
	// Serialize returns the engine's native file image of the whole database.
	Serialize(ctx context.Context) ([]byte, error)
	// Restore replaces the whole database with the given image.
	Restore(ctx context.Context, image []byte) error
	Close() error
}

// BlobStore keeps opaque byte blobs under fixed keys. Put overwrites.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}
