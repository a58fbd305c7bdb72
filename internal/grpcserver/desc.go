package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Register adds srv to s.
func Register(s grpc.ServiceRegistrar, srv MatchingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(MatchingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// handler adapts a MatchingServer method to a grpc.MethodDesc handler.
func handler(name string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MatchingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(MatchingServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes ServiceName for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateJob", Handler: handler("CreateJob", MatchingServer.CreateJob)},
		{MethodName: "GetJob", Handler: handler("GetJob", MatchingServer.GetJob)},
		{MethodName: "SubmitBid", Handler: handler("SubmitBid", MatchingServer.SubmitBid)},
		{MethodName: "CancelBid", Handler: handler("CancelBid", MatchingServer.CancelBid)},
		{MethodName: "ConfirmProvider", Handler: handler("ConfirmProvider", MatchingServer.ConfirmProvider)},
		{MethodName: "CancelConfirmedJob", Handler: handler("CancelConfirmedJob", MatchingServer.CancelConfirmedJob)},
		{MethodName: "AdvanceJob", Handler: handler("AdvanceJob", MatchingServer.AdvanceJob)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "helpr/matching/v1/matching.proto",
}
