package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/zkview/model"
)

// mapErr converts a coded error into a gRPC status.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	c := model.CodeOf(err)
	if c == model.ErrInternal && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return status.FromContextError(err).Err()
	}
	code := codes.Internal
	switch c {
	case model.ErrNotFound:
		code = codes.NotFound
	case model.ErrTransientIO:
		code = codes.Unavailable
	case model.ErrValidation:
		code = codes.InvalidArgument
	case model.ErrCodec:
		code = codes.FailedPrecondition
	}
	return status.Error(code, err.Error())
}

// mapRPC converts a gRPC status back into a coded error.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var code model.ErrorCode
	switch st.Code() {
	case codes.NotFound:
		code = model.ErrNotFound
	case codes.Unavailable:
		code = model.ErrTransientIO
	case codes.InvalidArgument:
		code = model.ErrValidation
	case codes.FailedPrecondition:
		code = model.ErrCodec
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		code = model.ErrInternal
	}
	return model.NewError(code, st.Message())
}
