package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"profilekeeper/internal/domain"
	"profilekeeper/internal/lib/launcher"
	"profilekeeper/internal/lib/logger/sl"
	"profilekeeper/internal/storage"
	"profilekeeper/internal/validator"
)

// ExportFilename is the name offered for downloaded database images.
const ExportFilename = "profiles.sqlite"

var (
	ErrInvalidID = errors.New("invalid profile id")
	// ErrPersist wraps failures to write the snapshot. The change itself has
	// been applied to the working database and is saved by the next write.
	ErrPersist = errors.New("failed to persist snapshot")
)

// Service owns the working database and mirrors it into the durable store.
// After every mutation the whole database is serialized and written under a
// single key. Operations are serialized by mu, so a save never overlaps the
// next edit.
type Service struct {
	log      *slog.Logger
	storage  storage.ProfileStorage
	blobs    storage.BlobStore
	key      string
	launcher launcher.Launcher

	mu sync.Mutex
}

func New(
	log *slog.Logger,
	storage storage.ProfileStorage,
	blobs storage.BlobStore,
	key string,
	launcher launcher.Launcher,
) *Service {
	return &Service{
		log:      log,
		storage:  storage,
		blobs:    blobs,
		key:      key,
		launcher: launcher,
	}
}

// Load rebuilds the working database from the stored snapshot. When nothing
// has been stored yet it creates an empty schema and persists it right away.
func (s *Service) Load(ctx context.Context) error {
	const op = "services.profile.Load"

	log := s.log.With(
		slog.String("op", op),
		slog.String("key", s.key),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	image, err := s.blobs.Get(ctx, s.key)
	switch {
	case err == nil:
		if err := s.storage.Restore(ctx, image); err != nil {
			log.Error("Failed to restore snapshot", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Info("Snapshot loaded", slog.Int("bytes", len(image)))
		return nil

	case errors.Is(err, storage.ErrBlobNotFound):
		if err := s.storage.Init(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.persist(ctx); err != nil {
			log.Error("Failed to persist empty database", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Info("No snapshot found, created empty database")
		return nil

	default:
		log.Error("Failed to read snapshot", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Reload re-reads the stored snapshot, replacing the working database.
// A missing snapshot leaves the working database as it is.
func (s *Service) Reload(ctx context.Context) error {
	const op = "services.profile.Reload"

	log := s.log.With(slog.String("op", op))

	s.mu.Lock()
	defer s.mu.Unlock()

	image, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			log.Warn("Snapshot disappeared, keeping working database")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.Restore(ctx, image); err != nil {
		log.Error("Failed to restore snapshot", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("Snapshot reloaded", slog.Int("bytes", len(image)))
	return nil
}

// persist must be called with mu held.
func (s *Service) persist(ctx context.Context) error {
	image, err := s.storage.Serialize(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if err := s.blobs.Put(ctx, s.key, image); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	return nil
}

func (s *Service) CreateProfile(ctx context.Context, req domain.CreateProfileRequest) (*domain.Profile, error) {
	const op = "services.profile.CreateProfile"

	name := strings.TrimSpace(req.Name)

	log := s.log.With(
		slog.String("op", op),
		slog.String("name", name),
	)

	v := validator.New()
	if validator.ValidateProfileName(v, name); !v.Valid() {
		log.Warn("Invalid profile name")
		return nil, fmt.Errorf("%s: %w", op, v.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.storage.CreateProfile(ctx, name)
	if err != nil {
		log.Error("Failed to create profile", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.persist(ctx); err != nil {
		log.Error("Profile created but not persisted", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("Profile created successfully", slog.Int64("profile_id", profile.ID))
	return profile, nil
}

func (s *Service) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	const op = "services.profile.GetProfile"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("profile_id", id),
	)

	if id <= 0 {
		log.Warn("Invalid profile ID")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.storage.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			log.Warn("Profile not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Error("Failed to get profile", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return profile, nil
}

// UpdateProfile rewrites every mutable field. created_at never changes.
func (s *Service) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	const op = "services.profile.UpdateProfile"

	req.Name = strings.TrimSpace(req.Name)

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("profile_id", req.ID),
	)

	v := validator.New()
	if validator.ValidateProfileUpdate(v, req); !v.Valid() {
		log.Warn("Invalid profile update", slog.Any("fields", v.Errors))
		return nil, fmt.Errorf("%s: %w", op, v.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.storage.UpdateProfile(ctx, req)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			log.Warn("Profile not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Error("Failed to update profile", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.persist(ctx); err != nil {
		log.Error("Profile updated but not persisted", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("Profile updated successfully")
	return profile, nil
}

// DeleteProfile removes the profile at once and for good.
func (s *Service) DeleteProfile(ctx context.Context, id int64) error {
	const op = "services.profile.DeleteProfile"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("profile_id", id),
	)

	if id <= 0 {
		log.Warn("Invalid profile ID")
		return fmt.Errorf("%s: %w", op, ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.DeleteProfile(ctx, id); err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			log.Warn("Profile not found")
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Error("Failed to delete profile", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.persist(ctx); err != nil {
		log.Error("Profile deleted but not persisted", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("Profile deleted successfully")
	return nil
}

// ListProfiles scans the whole table, newest first, and filters in memory.
func (s *Service) ListProfiles(ctx context.Context, filter domain.ListProfilesFilter) ([]*domain.Profile, error) {
	const op = "services.profile.ListProfiles"

	log := s.log.With(
		slog.String("op", op),
		slog.String("query", filter.Query),
		slog.String("status", string(filter.Status)),
	)

	s.mu.Lock()
	all, err := s.storage.ListProfiles(ctx)
	s.mu.Unlock()
	if err != nil {
		log.Error("Failed to list profiles", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profiles := make([]*domain.Profile, 0, len(all))
	for _, p := range all {
		if filter.Match(p) {
			profiles = append(profiles, p)
		}
	}

	log.Debug("Profiles listed", slog.Int("count", len(profiles)), slog.Int("total", len(all)))
	return profiles, nil
}

// OpenProfile hands the profile to the configured launcher.
func (s *Service) OpenProfile(ctx context.Context, id int64) error {
	const op = "services.profile.OpenProfile"

	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.launcher.Launch(ctx, profile); err != nil {
		s.log.Error("Failed to launch profile",
			slog.String("op", op),
			slog.Int64("profile_id", id),
			sl.Err(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Export returns the working database as a SQLite file image.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	const op = "services.profile.Export"

	s.mu.Lock()
	defer s.mu.Unlock()

	image, err := s.storage.Serialize(ctx)
	if err != nil {
		s.log.Error("Failed to export database", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return image, nil
}

// Import replaces the whole working database with image and persists it.
// Existing profiles are dropped; nothing is merged.
func (s *Service) Import(ctx context.Context, image []byte) error {
	const op = "services.profile.Import"

	log := s.log.With(
		slog.String("op", op),
		slog.Int("bytes", len(image)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Restore(ctx, image); err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			log.Warn("Rejected database image", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Error("Failed to import database", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.persist(ctx); err != nil {
		log.Error("Database imported but not persisted", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("Database imported successfully")
	return nil
}
