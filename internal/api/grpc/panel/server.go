package panel

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/logger"
)

// Server implements AlarmPanelServer for one panel.
type Server struct {
	// panel receives the commands.
	panel domain.Panel
}

var _ AlarmPanelServer = (*Server)(nil)

// NewServer wires panel into a gRPC handler.
func NewServer(panel domain.Panel) *Server {
	return &Server{panel: panel}
}

// GetPanel returns the current panel snapshot.
func (s *Server) GetPanel(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return s.snapshot()
}

// Disarm disarms the panel with the code from the request.
func (s *Server) Disarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.command(ctx, "disarm", s.panel.Disarm, req)
}

// ArmHome arms the panel in home mode.
func (s *Server) ArmHome(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.command(ctx, "arm_home", s.panel.ArmHome, req)
}

// ArmAway arms the panel in away mode.
func (s *Server) ArmAway(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.command(ctx, "arm_away", s.panel.ArmAway, req)
}

func (s *Server) command(
	ctx context.Context,
	name string,
	run func(ctx context.Context, code *string) error,
	req *structpb.Struct,
) (*structpb.Struct, error) {
	ctx = logger.WithKV(ctx, "command", name, "actor", ActorFromContext(ctx).String())
	logger.Info(ctx, "Command requested over gRPC")

	if err := run(ctx, codeFromRequest(req)); err != nil {
		return nil, toStatus(err)
	}

	return s.snapshot()
}

func (s *Server) snapshot() (*structpb.Struct, error) {
	out, err := Describe(s.panel).ToStruct()
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode panel")
	}

	return out, nil
}

// toStatus maps command errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		return status.Error(codes.PermissionDenied, err.Error())
	case domain.IsCommandError(err):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, domain.ErrCommandRejected):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
