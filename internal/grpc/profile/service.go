package profile

import (
	"context"

	"profilekeeper/internal/domain"

	"google.golang.org/grpc"
)

const ServiceName = "profilekeeper.v1.ProfileService"

type GetProfileRequest struct {
	ID int64 `json:"id"`
}

type DeleteProfileRequest struct {
	ID int64 `json:"id"`
}

type DeleteProfileResponse struct{}

type ListProfilesResponse struct {
	Profiles []*domain.Profile `json:"profiles"`
}

type OpenProfileRequest struct {
	ID int64 `json:"id"`
}

type OpenProfileResponse struct{}

type ExportRequest struct{}

type ExportResponse struct {
	Filename string `json:"filename"`
	Image    []byte `json:"image"`
}

type ImportRequest struct {
	Image []byte `json:"image"`
}

type ImportResponse struct{}

// ProfileServer is the server side of ProfileService.
type ProfileServer interface {
	CreateProfile(ctx context.Context, req *domain.CreateProfileRequest) (*domain.Profile, error)
	GetProfile(ctx context.Context, req *GetProfileRequest) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, req *DeleteProfileRequest) (*DeleteProfileResponse, error)
	ListProfiles(ctx context.Context, req *domain.ListProfilesFilter) (*ListProfilesResponse, error)
	OpenProfile(ctx context.Context, req *OpenProfileRequest) (*OpenProfileResponse, error)
	Export(ctx context.Context, req *ExportRequest) (*ExportResponse, error)
	Import(ctx context.Context, req *ImportRequest) (*ImportResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfileServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateProfile", ProfileServer.CreateProfile),
		unary("GetProfile", ProfileServer.GetProfile),
		unary("UpdateProfile", ProfileServer.UpdateProfile),
		unary("DeleteProfile", ProfileServer.DeleteProfile),
		unary("ListProfiles", ProfileServer.ListProfiles),
		unary("OpenProfile", ProfileServer.OpenProfile),
		unary("Export", ProfileServer.Export),
		unary("Import", ProfileServer.Import),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "profilekeeper/v1/profile",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](
	name string,
	call func(ProfileServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ProfileServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ProfileServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func RegisterProfileServer(s grpc.ServiceRegistrar, srv ProfileServer) {
	s.RegisterService(&serviceDesc, srv)
}
