package panel

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarmpanel.v1.AlarmPanelService"

// Full method names.
const (
	GetPanelMethod = "/" + ServiceName + "/GetPanel"
	DisarmMethod   = "/" + ServiceName + "/Disarm"
	ArmHomeMethod  = "/" + ServiceName + "/ArmHome"
	ArmAwayMethod  = "/" + ServiceName + "/ArmAway"
)

// AlarmPanelServer is the server API of AlarmPanelService.
type AlarmPanelServer interface {
	GetPanel(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Disarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ArmHome(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ArmAway(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AlarmPanelClient is the client API of AlarmPanelService.
type AlarmPanelClient interface {
	GetPanel(ctx context.Context, req *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Disarm(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ArmHome(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ArmAway(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// ServiceDesc describes AlarmPanelService for grpc.Server.
//
//nolint:gochecknoglobals // Registered once, the same way generated code does it.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmPanelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPanel", Handler: getPanelHandler},
		{MethodName: "Disarm", Handler: commandHandler(DisarmMethod, AlarmPanelServer.Disarm)},
		{MethodName: "ArmHome", Handler: commandHandler(ArmHomeMethod, AlarmPanelServer.ArmHome)},
		{MethodName: "ArmAway", Handler: commandHandler(ArmAwayMethod, AlarmPanelServer.ArmAway)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarmpanel/v1/alarm_panel.proto",
}

// RegisterAlarmPanelServer registers srv on s.
func RegisterAlarmPanelServer(s grpc.ServiceRegistrar, srv AlarmPanelServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getPanelHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmPanelServer).GetPanel(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetPanelMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmPanelServer).GetPanel(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

type commandFunc func(AlarmPanelServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func commandHandler(fullMethod string, call commandFunc) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(AlarmPanelServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AlarmPanelServer), ctx, req.(*structpb.Struct))
		}

		return interceptor(ctx, in, info, handler)
	}
}

type alarmPanelClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmPanelClient returns a client stub over cc.
func NewAlarmPanelClient(cc grpc.ClientConnInterface) AlarmPanelClient {
	return &alarmPanelClient{cc: cc}
}

func (c *alarmPanelClient) GetPanel(
	ctx context.Context,
	req *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetPanelMethod, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmPanelClient) Disarm(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.command(ctx, DisarmMethod, req, opts...)
}

func (c *alarmPanelClient) ArmHome(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.command(ctx, ArmHomeMethod, req, opts...)
}

func (c *alarmPanelClient) ArmAway(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.command(ctx, ArmAwayMethod, req, opts...)
}

func (c *alarmPanelClient) command(
	ctx context.Context,
	method string,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	if req == nil {
		req = new(structpb.Struct)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
