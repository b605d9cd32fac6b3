package grpc

import (
	"context"

	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var kindCodes = map[services.Kind]codes.Code{
	services.KindInvalid:         codes.InvalidArgument,
	services.KindNotFound:        codes.NotFound,
	services.KindPrecondition:    codes.FailedPrecondition,
	services.KindConflict:        codes.Aborted,
	services.KindUnavailable:     codes.Unavailable,
	services.KindUnauthenticated: codes.Unauthenticated,
	services.KindForbidden:       codes.PermissionDenied,
	services.KindCanceled:        codes.Canceled,
	services.KindTimeout:         codes.DeadlineExceeded,
}

// toStatus converts a service error to a gRPC status. Internal errors are
// logged and their text is not sent to the caller.
func toStatus(ctx context.Context, logger logging.Logger, method string, err error) error {
	if code, ok := kindCodes[services.Classify(err)]; ok {
		return status.Error(code, err.Error())
	}
	logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}
