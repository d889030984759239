package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "xdao.zkview.v1.Explorer"

// ExplorerServer is the server API for the Explorer gRPC service.
//
// Requests and replies are protobuf well-known types, so no protoc/codegen
// step is needed. Structured replies are JSON-shaped structpb values.
//
// Proto definition: explorer.proto.
type ExplorerServer interface {
	Classify(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ResolveImage(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetSession(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListSessions(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	Disassemble(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// UnimplementedExplorerServer can be embedded to have forward compatible implementations.
type UnimplementedExplorerServer struct{}

func (UnimplementedExplorerServer) Classify(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Classify not implemented")
}
func (UnimplementedExplorerServer) ResolveImage(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveImage not implemented")
}
func (UnimplementedExplorerServer) GetSession(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
}
func (UnimplementedExplorerServer) ListSessions(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
}
func (UnimplementedExplorerServer) Disassemble(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Disassemble not implemented")
}

// RegisterExplorerServer registers the Explorer service on a gRPC server.
func RegisterExplorerServer(s grpc.ServiceRegistrar, srv ExplorerServer) {
	s.RegisterService(&Explorer_ServiceDesc, srv)
}

// ExplorerClient is the client API for the Explorer gRPC service.
type ExplorerClient interface {
	Classify(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ResolveImage(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSession(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListSessions(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Disassemble(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type explorerClient struct{ cc grpc.ClientConnInterface }

func NewExplorerClient(cc grpc.ClientConnInterface) ExplorerClient { return &explorerClient{cc: cc} }

func (c *explorerClient) Classify(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/xdao.zkview.v1.Explorer/Classify", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *explorerClient) ResolveImage(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/xdao.zkview.v1.Explorer/ResolveImage", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *explorerClient) GetSession(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/xdao.zkview.v1.Explorer/GetSession", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *explorerClient) ListSessions(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	err := c.cc.Invoke(ctx, "/xdao.zkview.v1.Explorer/ListSessions", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *explorerClient) Disassemble(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/xdao.zkview.v1.Explorer/Disassemble", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Explorer_Classify_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExplorerServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.zkview.v1.Explorer/Classify"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExplorerServer).Classify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Explorer_ResolveImage_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExplorerServer).ResolveImage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.zkview.v1.Explorer/ResolveImage"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExplorerServer).ResolveImage(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Explorer_GetSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExplorerServer).GetSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.zkview.v1.Explorer/GetSession"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExplorerServer).GetSession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Explorer_ListSessions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExplorerServer).ListSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.zkview.v1.Explorer/ListSessions"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExplorerServer).ListSessions(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Explorer_Disassemble_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExplorerServer).Disassemble(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.zkview.v1.Explorer/Disassemble"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExplorerServer).Disassemble(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Explorer_ServiceDesc is the grpc.ServiceDesc for Explorer service.
var Explorer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExplorerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Classify", Handler: _Explorer_Classify_Handler},
		{MethodName: "ResolveImage", Handler: _Explorer_ResolveImage_Handler},
		{MethodName: "GetSession", Handler: _Explorer_GetSession_Handler},
		{MethodName: "ListSessions", Handler: _Explorer_ListSessions_Handler},
		{MethodName: "Disassemble", Handler: _Explorer_Disassemble_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "explorer.proto",
}
