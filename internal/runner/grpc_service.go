package runner

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// LoadControl carries its messages as google.protobuf.Struct, so no
// generated code is needed on either side.
const loadControlServiceName = "loadgen.v1.LoadControl"

// LoadControlServer is the server API for the loadgen.v1.LoadControl service.
type LoadControlServer interface {
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(LoadControlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + loadControlServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LoadControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LoadControlServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LoadControlServiceDesc describes the loadgen.v1.LoadControl service
var LoadControlServiceDesc = grpc.ServiceDesc{
	ServiceName: loadControlServiceName,
	HandlerType: (*LoadControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRun", Handler: unaryHandler("CreateRun", LoadControlServer.CreateRun)},
		{MethodName: "StartRun", Handler: unaryHandler("StartRun", LoadControlServer.StartRun)},
		{MethodName: "StopRun", Handler: unaryHandler("StopRun", LoadControlServer.StopRun)},
		{MethodName: "GetRun", Handler: unaryHandler("GetRun", LoadControlServer.GetRun)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "loadgen/v1/loadgen.proto",
}

// RegisterLoadControlServer registers srv on s
func RegisterLoadControlServer(s grpc.ServiceRegistrar, srv LoadControlServer) {
	s.RegisterService(&LoadControlServiceDesc, srv)
}

// LoadControlClient is the client API for the loadgen.v1.LoadControl service.
type LoadControlClient struct {
	cc grpc.ClientConnInterface
}

func NewLoadControlClient(cc grpc.ClientConnInterface) *LoadControlClient {
	return &LoadControlClient{cc: cc}
}

func (c *LoadControlClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+loadControlServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LoadControlClient) CreateRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateRun", in, opts...)
}

func (c *LoadControlClient) StartRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartRun", in, opts...)
}

func (c *LoadControlClient) StopRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StopRun", in, opts...)
}

func (c *LoadControlClient) GetRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRun", in, opts...)
}
