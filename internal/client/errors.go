package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dovol/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrUnavailable = errors.New("server unavailable")

// mapError converts a gRPC status into the matching sentinel, keeping the
// server's message for display.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			sentinel = common.ErrTokenExpired
		} else {
			sentinel = common.ErrorUnauthenticated
		}
	case codes.PermissionDenied:
		sentinel = common.ErrorForbidden
	case codes.NotFound:
		sentinel = common.ErrorNotFound
	case codes.AlreadyExists:
		sentinel = common.ErrorConflict
	case codes.InvalidArgument:
		sentinel = common.ErrorValidation
	case codes.FailedPrecondition:
		sentinel = common.ErrExpired
	case codes.ResourceExhausted:
		sentinel = common.ErrRateLimited
	case codes.Unavailable:
		sentinel = common.ErrDeliveryFailure
		if st.Message() != publicDeliveryMessage {
			sentinel = ErrUnavailable
		}
	case codes.DeadlineExceeded:
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}

// publicDeliveryMessage is what the server says when a code could not be
// mailed; any other Unavailable comes from the connection itself.
const publicDeliveryMessage = "failed to send code, please try again later"
