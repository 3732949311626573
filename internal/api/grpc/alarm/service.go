package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names as they appear on the wire.
const (
	ServiceName  = "alarm.v1.AlarmScheduler"
	SubmitMethod = "/" + ServiceName + "/Submit"
	ViewMethod   = "/" + ServiceName + "/View"
)

// Handler is the server-side contract of the AlarmScheduler service.
type Handler interface {
	Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	View(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the AlarmScheduler service for grpc.ServiceRegistrar.
//
//nolint:gochecknoglobals // Mirrors the descriptors protoc-gen-go-grpc emits.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler:    submitHandler,
		},
		{
			MethodName: "View",
			Handler:    viewHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}

// Register attaches h to the registrar.
func Register(registrar grpc.ServiceRegistrar, h Handler) {
	registrar.RegisterService(&ServiceDesc, h)
}

//nolint:revive // Signature fixed by grpc.MethodDesc.
func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(Handler).Submit(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SubmitMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handler).Submit(ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:revive // Signature fixed by grpc.MethodDesc.
func viewHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(Handler).View(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ViewMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handler).View(ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	return interceptor(ctx, in, info, handler)
}
