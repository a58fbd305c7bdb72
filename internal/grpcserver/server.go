// Package grpcserver exposes the matching workflow over gRPC.
//
// It delegates all business logic to marketplace.Service and handles only
// the transport concerns: metadata extraction, error mapping, and conversion
// between the domain model and structpb messages. The service descriptor is
// written by hand; every method takes and returns a google.protobuf.Struct
// whose fields use the same JSON names as the REST API.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "helpr.matching.v1.MatchingService"

// MatchingServer is the server API for ServiceName.
type MatchingServer interface {
	CreateJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitBid(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBid(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmProvider(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelConfirmedJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdvanceJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements MatchingServer.
type Server struct {
	svc *marketplace.Service
	log *logging.Logger
}

// NewServer constructs a gRPC Server backed by the given marketplace.Service.
func NewServer(svc *marketplace.Service, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{svc: svc, log: log}
}

// New builds a *grpc.Server with the matching service and the standard
// health service registered.
func New(srv MatchingServer, opts ...grpc.ServerOption) *grpc.Server {
	gs := grpc.NewServer(opts...)
	Register(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

// ─── RPC implementations ─────────────────────────────────────────────────────

type jobRef struct {
	ServiceID string `json:"service_id"`
}

type bidRequest struct {
	ServiceID        string     `json:"service_id"`
	Bid              float64    `json:"bid"`
	ProposedDateTime *time.Time `json:"proposed_date_time"`
}

type confirmRequest struct {
	ServiceID         string  `json:"service_id"`
	ServiceProviderID string  `json:"service_provider_id"`
	Bid               float64 `json:"bid"`
}

type advanceRequest struct {
	ServiceID string `json:"service_id"`
	NewStatus string `json:"newStatus"`
}

// CreateJob creates a job for the calling customer.
func (s *Server) CreateJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in marketplace.JobInput
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	job, err := s.svc.CreateJob(ctx, userID, in)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(job)
}

// GetJob returns one job with its bid count.
func (s *Server) GetJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := userIDFromCtx(ctx); err != nil {
		return nil, err
	}
	var in jobRef
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	view, err := s.svc.GetJob(ctx, in.ServiceID)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(view)
}

// SubmitBid places the caller's bid, or claims an AutoFill job.
func (s *Server) SubmitBid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in bidRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	res, err := s.svc.SubmitBid(ctx, userID, in.ServiceID, in.Bid, in.ProposedDateTime)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(res)
}

// CancelBid withdraws the caller's bid.
func (s *Server) CancelBid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in jobRef
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	if err := s.svc.CancelBid(ctx, userID, in.ServiceID); err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(map[string]string{"status": "cancelled"})
}

// ConfirmProvider is the customer picking a bid.
func (s *Server) ConfirmProvider(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in confirmRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	job, err := s.svc.ConfirmProvider(ctx, userID, in.ServiceID, in.ServiceProviderID, in.Bid)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(job)
}

// CancelConfirmedJob is the assigned provider backing out.
func (s *Server) CancelConfirmedJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in jobRef
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	job, err := s.svc.CancelConfirmedJob(ctx, userID, in.ServiceID)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(job)
}

// AdvanceJob moves an assigned job forward.
func (s *Server) AdvanceJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in advanceRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	job, err := s.svc.AdvanceJob(ctx, userID, in.ServiceID, in.NewStatus)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return toStruct(job)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the gateway via
// gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors.
func (s *Server) toGRPCError(err error) error {
	var ve *marketplace.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Msg)
	case errors.Is(err, marketplace.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, marketplace.ErrNotOpen):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	s.log.Error("rpc failed", "err", err)
	return status.Error(codes.Internal, "internal server error")
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(req *structpb.Struct, v any) error {
	raw, err := req.MarshalJSON()
	if err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

// toStruct encodes v as a Struct using its JSON tags.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
