package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/policy"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps error categories to status codes. Persistence and unknown
// errors are logged and reported as a bare "internal error".
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var (
		integrity *services.IntegrityError
		deny      *policy.DenyError
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &integrity):
		return status.Error(codes.DataLoss, integrity.Message())
	case errors.Is(err, common.ErrIntegrity):
		return status.Error(codes.DataLoss, "document content is corrupted or has been tampered with")
	case errors.As(err, &deny):
		return status.Error(codes.PermissionDenied, deny.Error())
	case errors.Is(err, common.ErrAuthorization):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrPersistence):
		// never echo driver messages
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrAuthentication):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
