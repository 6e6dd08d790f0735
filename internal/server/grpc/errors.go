package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dovol/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// codeFor maps service errors onto gRPC status codes.
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, common.ErrStorageFailure):
		return codes.Internal
	case errors.Is(err, common.ErrorUnauthenticated),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return codes.Unauthenticated
	case errors.Is(err, common.ErrorNotFound):
		return codes.NotFound
	case errors.Is(err, common.ErrInvalid),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrorValidation):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrExpired):
		return codes.FailedPrecondition
	case errors.Is(err, common.ErrorConflict):
		return codes.AlreadyExists
	case errors.Is(err, common.ErrorForbidden):
		return codes.PermissionDenied
	case errors.Is(err, common.ErrDeliveryFailure):
		return codes.Unavailable
	case errors.Is(err, common.ErrRateLimited):
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// toStatus converts err into a gRPC status error. Internal details are not
// sent to the client.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codeFor(err)
	if code == codes.Internal {
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "request rejected", "method", method, "code", code.String(), "error", err)
	return status.Error(code, publicMessage(code, err))
}

func publicMessage(code codes.Code, err error) string {
	switch code {
	case codes.Unauthenticated:
		if errors.Is(err, common.ErrTokenExpired) {
			return "token expired"
		}
		return "could not validate credentials"
	case codes.Unavailable:
		return "failed to send code, please try again later"
	default:
		return err.Error()
	}
}
