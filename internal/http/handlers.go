package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"profilekeeper/internal/domain"
	"profilekeeper/internal/lib/logger/sl"
	profileService "profilekeeper/internal/services/profile"
	"profilekeeper/internal/storage"
	"profilekeeper/internal/validator"

	"github.com/go-chi/chi/v5"
)

type Profile interface {
	CreateProfile(ctx context.Context, req domain.CreateProfileRequest) (*domain.Profile, error)
	GetProfile(ctx context.Context, id int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, id int64) error
	ListProfiles(ctx context.Context, filter domain.ListProfilesFilter) ([]*domain.Profile, error)
	OpenProfile(ctx context.Context, id int64) error
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, image []byte) error
}

// Handler exposes profile operations over HTTP.
type Handler struct {
	profiles      Profile
	maxImportSize int64
	log           *slog.Logger
}

func NewHandler(profiles Profile, maxImportSize int64, log *slog.Logger) *Handler {
	return &Handler{profiles: profiles, maxImportSize: maxImportSize, log: log}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type listResponse struct {
	Profiles []*domain.Profile `json:"profiles"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validator.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, storage.ErrProfileNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "profile not found"})
	case errors.Is(err, profileService.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid profile id"})
	case errors.Is(err, storage.ErrInvalidImage):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid database image"})
	default:
		loggerFrom(r.Context(), h.log).Error("request failed", sl.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func profileID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, profileService.ErrInvalidID
	}
	return id, nil
}

// List returns profiles newest first, filtered by ?q= and ?status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListProfilesFilter{
		Query:  r.URL.Query().Get("q"),
		Status: domain.Status(r.URL.Query().Get("status")),
	}

	profiles, err := h.profiles.ListProfiles(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Profiles: profiles})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	profile, err := h.profiles.CreateProfile(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Update rewrites every mutable field; the id comes from the path.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.ID = id

	profile, err := h.profiles.UpdateProfile(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.profiles.DeleteProfile(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.profiles.OpenProfile(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Export downloads the working database as profiles.sqlite.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	image, err := h.profiles.Export(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", profileService.ExportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}

// Import accepts the image either as the raw request body, whatever its
// content type, or as the "file" field of a multipart form.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportSize)

	image, err := readImport(r, h.maxImportSize)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid upload"})
		return
	}

	if err := h.profiles.Import(r.Context(), image); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readImport takes the "file" field of a multipart form. Any other content
// type is read as the raw image.
func readImport(r *http.Request, maxSize int64) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, err
	}

	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
