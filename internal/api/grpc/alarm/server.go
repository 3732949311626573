package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/registry"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
)

// ActorMetadataKey carries the caller identity in request metadata.
const ActorMetadataKey = "x-alarm-actor"

// Service abstracts the scheduler operations the transport layer depends on.
type Service interface {
	Submit(ctx context.Context, req domain.Request) (domain.Outcome, error)
	Snapshot(ctx context.Context) domain.Snapshot
}

// Server implements the AlarmScheduler gRPC API.
type Server struct {
	// service runs the requests.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Submit decodes a request, runs it and returns the encoded outcome.
func (s *Server) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	request, err := DecodeRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}

	ctx = logger.WithKV(ctx, "actor", actorFromContext(ctx))

	logger.DebugKV(ctx, "Remote request", "kind", request.Kind.String(), "alarm_id", request.ID)

	outcome, err := s.service.Submit(ctx, request)
	if err != nil {
		logger.DebugKV(ctx, "Submit rejected", "kind", request.Kind.String(), "alarm_id", request.ID, "error", err)

		return nil, toStatus(err)
	}

	response, err := EncodeOutcome(outcome)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode outcome")
	}

	return response, nil
}

// View returns the current worker assignments.
func (s *Server) View(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	response, err := EncodeSnapshot(s.service.Snapshot(ctx))
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode snapshot")
	}

	return response, nil
}

// actorFromContext returns the caller identity sent by the client, or "unknown".
func actorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "unknown"
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 && values[0] != "" {
		return values[0]
	}

	return "unknown"
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, ErrBadMessage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, scheduler.ErrNotRunning):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
