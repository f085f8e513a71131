package profile

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"profilekeeper/internal/domain"
	"profilekeeper/internal/lib/logger/sl"
	profileService "profilekeeper/internal/services/profile"
	"profilekeeper/internal/storage"
	"profilekeeper/internal/validator"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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

type serverAPI struct {
	profileService Profile
	log            *slog.Logger
}

func Register(gRPCServer *grpc.Server, profileService Profile, log *slog.Logger) {
	RegisterProfileServer(gRPCServer, &serverAPI{
		profileService: profileService,
		log:            log,
	})

	log.Info("Profile service registered")
}

func (s *serverAPI) CreateProfile(ctx context.Context, req *domain.CreateProfileRequest) (*domain.Profile, error) {
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}

	profile, err := s.profileService.CreateProfile(ctx, *req)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return profile, nil
}

func (s *serverAPI) GetProfile(ctx context.Context, req *GetProfileRequest) (*domain.Profile, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	profile, err := s.profileService.GetProfile(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return profile, nil
}

func (s *serverAPI) UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	profile, err := s.profileService.UpdateProfile(ctx, *req)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return profile, nil
}

func (s *serverAPI) DeleteProfile(ctx context.Context, req *DeleteProfileRequest) (*DeleteProfileResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	if err := s.profileService.DeleteProfile(ctx, req.ID); err != nil {
		return nil, s.toStatus(err)
	}

	return &DeleteProfileResponse{}, nil
}

func (s *serverAPI) ListProfiles(ctx context.Context, req *domain.ListProfilesFilter) (*ListProfilesResponse, error) {
	profiles, err := s.profileService.ListProfiles(ctx, *req)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return &ListProfilesResponse{Profiles: profiles}, nil
}

func (s *serverAPI) OpenProfile(ctx context.Context, req *OpenProfileRequest) (*OpenProfileResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	if err := s.profileService.OpenProfile(ctx, req.ID); err != nil {
		return nil, s.toStatus(err)
	}

	return &OpenProfileResponse{}, nil
}

func (s *serverAPI) Export(ctx context.Context, _ *ExportRequest) (*ExportResponse, error) {
	image, err := s.profileService.Export(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return &ExportResponse{Filename: profileService.ExportFilename, Image: image}, nil
}

func (s *serverAPI) Import(ctx context.Context, req *ImportRequest) (*ImportResponse, error) {
	if len(req.Image) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image is required")
	}

	if err := s.profileService.Import(ctx, req.Image); err != nil {
		return nil, s.toStatus(err)
	}

	return &ImportResponse{}, nil
}

// toStatus maps service errors to gRPC status codes. Field violations travel
// as errdetails.BadRequest.
func (s *serverAPI) toStatus(err error) error {
	var verr *validator.Error
	switch {
	case errors.As(err, &verr):
		return badRequest(verr)
	case errors.Is(err, storage.ErrProfileNotFound):
		return status.Error(codes.NotFound, "profile not found")
	case errors.Is(err, profileService.ErrInvalidID):
		return status.Error(codes.InvalidArgument, "invalid profile id")
	case errors.Is(err, storage.ErrInvalidImage):
		return status.Error(codes.InvalidArgument, "invalid database image")
	}

	s.log.Error("Internal error", sl.Err(err))
	return status.Error(codes.Internal, "internal server error")
}

func badRequest(verr *validator.Error) error {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	br := &errdetails.BadRequest{}
	for _, f := range fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       f,
			Description: verr.Fields[f],
		})
	}

	st, err := status.New(codes.InvalidArgument, "validation failed").WithDetails(br)
	if err != nil {
		return status.Error(codes.InvalidArgument, verr.Error())
	}
	return st.Err()
}
