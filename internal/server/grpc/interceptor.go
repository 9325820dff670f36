package grpc

import (
	"context"
	"path"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// operations maps method names to the operation label used in logs and
// metrics.
var operations = map[string]string{
	"Register":      "register",
	"Login":         "login",
	"ResetPassword": "reset_password",
	"UpdateUser":    "update_user",
	"ValidateToken": "validate_token",
}

func operationName(fullMethod string) string {
	m := path.Base(fullMethod)
	if op, ok := operations[m]; ok {
		return op
	}
	return m
}

// requestIDInterceptor takes the caller's x-request-id or generates one,
// stores it in the context for the logger and echoes it in the response
// header.
func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.RequestIDHeader); len(values) > 0 {
			id = values[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	ctx = logging.WithRequestID(ctx, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeader, id))

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	started := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(started)}
	if code == codes.Internal || code == codes.Unavailable {
		s.logger.Error(ctx, "grpc request failed", append(args, "error", err)...)
	} else {
		s.logger.Info(ctx, "grpc request", args...)
	}
	return resp, err
}

func (s *GRPCServer) statusInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	started := time.Now()
	resp, err := handler(ctx, req)
	s.metrics.Observe("grpc", operationName(info.FullMethod), started, err)
	return resp, err
}

// toStatus converts a domain error to a gRPC status. Internal causes are not
// exposed except for validation messages.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	kind := common.KindOf(err)
	switch kind {
	case common.KindDuplicateEmail, common.KindEmailConflict:
		return status.Error(codes.AlreadyExists, kind.String())
	case common.KindInvalidCredentials, common.KindTokenMalformed, common.KindTokenExpired, common.KindTokenInvalid:
		return status.Error(codes.Unauthenticated, kind.String())
	case common.KindAccountInactive:
		return status.Error(codes.PermissionDenied, kind.String())
	case common.KindUserNotFound:
		return status.Error(codes.NotFound, kind.String())
	case common.KindValidation:
		return status.Error(codes.InvalidArgument, common.Detail(err))
	case common.KindStoreUnavailable:
		return status.Error(codes.Unavailable, kind.String())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
