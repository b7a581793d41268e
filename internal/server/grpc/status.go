package grpc

import (
	"errors"

	"github.com/dmitrijs2005/chirper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusFromError maps a service error to a gRPC status error. Errors that
// were never classified become Internal with a generic message.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}

	appErr, ok := common.AsAppError(err)
	if !ok {
		return status.Error(codes.Internal, common.Internal("").Message)
	}

	var code codes.Code
	switch {
	case errors.Is(err, common.ErrorInvalidCredentials), errors.Is(err, common.ErrorBadRequest):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrorUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, common.ErrorForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrorConflict):
		code = codes.AlreadyExists
	default:
		code = codes.Internal
	}

	return status.Error(code, appErr.Message)
}
