package inspector

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a thin hand-written stub over a grpc.ClientConnInterface,
// standing in for what protoc-gen-go-grpc would otherwise generate.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection (e.g. from grpc.NewClient).
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ListChannels calls the Inspector service's ListChannels RPC.
func (c *Client) ListChannels(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListChannels", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SetDebug calls the Inspector service's SetDebug RPC for the named channel.
func (c *Client) SetDebug(ctx context.Context, channelName string, debug bool, opts ...grpc.CallOption) error {
	req, err := structpb.NewStruct(map[string]interface{}{
		"name":  channelName,
		"debug": debug,
	})
	if err != nil {
		return err
	}
	out := new(emptypb.Empty)
	return c.cc.Invoke(ctx, "/"+serviceName+"/SetDebug", req, out, opts...)
}
