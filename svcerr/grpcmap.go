package svcerr

import (
	"time"

	"google.golang.org/grpc/codes"
)

// defaultResourceExhaustedDelay is the suggested delay for RESOURCE_EXHAUSTED
// when no retry hint is available on the wire, matching the default RateLimit
// delay used elsewhere in the taxonomy.
const defaultResourceExhaustedDelay = 60 * time.Second

// MapGRPC translates a gRPC status into the shared error taxonomy. b is the
// in-progress ErrorContext builder for this call.
func MapGRPC(b *ContextBuilder, code codes.Code, message string, cause error) *ServiceError {
	b.GRPCStatus(code.String())
	ctx := b.Build()

	msg := fallback(message, code.String())

	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return New(KindValidation, msg, ctx, cause)
	case codes.Unauthenticated, codes.PermissionDenied:
		return New(KindAuthentication, msg, ctx, cause)
	case codes.NotFound:
		return New(KindNotFound, msg, ctx, cause)
	case codes.Aborted, codes.AlreadyExists:
		return New(KindConflict, msg, ctx, cause)
	case codes.DeadlineExceeded:
		return New(KindTimeout, msg, ctx, cause)
	case codes.ResourceExhausted:
		return New(KindRateLimit, msg, ctx, cause).WithSuggestedDelay(defaultResourceExhaustedDelay)
	case codes.Internal, codes.DataLoss, codes.Unknown:
		return New(KindInternalError, msg, ctx, cause)
	case codes.Unavailable:
		return New(KindTemporarilyUnavailable, msg, ctx, cause)
	default:
		return New(KindUnknown, msg, ctx, cause)
	}
}
