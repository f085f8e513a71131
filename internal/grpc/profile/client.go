package profile

import (
	"context"

	"profilekeeper/internal/domain"

	"google.golang.org/grpc"
)

// Client calls ProfileService over an existing connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) CreateProfile(ctx context.Context, name string, opts ...grpc.CallOption) (*domain.Profile, error) {
	out := new(domain.Profile)
	if err := c.invoke(ctx, "CreateProfile", &domain.CreateProfileRequest{Name: name}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProfile(ctx context.Context, id int64, opts ...grpc.CallOption) (*domain.Profile, error) {
	out := new(domain.Profile)
	if err := c.invoke(ctx, "GetProfile", &GetProfileRequest{ID: id}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest, opts ...grpc.CallOption) (*domain.Profile, error) {
	out := new(domain.Profile)
	if err := c.invoke(ctx, "UpdateProfile", &req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteProfile(ctx context.Context, id int64, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "DeleteProfile", &DeleteProfileRequest{ID: id}, new(DeleteProfileResponse), opts...)
}

func (c *Client) ListProfiles(ctx context.Context, filter domain.ListProfilesFilter, opts ...grpc.CallOption) ([]*domain.Profile, error) {
	out := new(ListProfilesResponse)
	if err := c.invoke(ctx, "ListProfiles", &filter, out, opts...); err != nil {
		return nil, err
	}
	return out.Profiles, nil
}

func (c *Client) OpenProfile(ctx context.Context, id int64, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "OpenProfile", &OpenProfileRequest{ID: id}, new(OpenProfileResponse), opts...)
}

func (c *Client) Export(ctx context.Context, opts ...grpc.CallOption) ([]byte, error) {
	out := new(ExportResponse)
	if err := c.invoke(ctx, "Export", &ExportRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out.Image, nil
}

func (c *Client) Import(ctx context.Context, image []byte, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "Import", &ImportRequest{Image: image}, new(ImportResponse), opts...)
}
