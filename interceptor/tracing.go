package interceptor

import (
	"context"

	"github.com/aperturestack/svcclient/observe"
	"github.com/aperturestack/svcclient/request"
)

// Tracing builds a span-per-call interceptor bound to tracer. Grounded on
// observe/middleware.go's tool-span wrapping, generalized from ToolMeta to
// the per-request Service/Endpoint/Method/Protocol that request.Request
// already carries.
func Tracing(tracer observe.Tracer) Interceptor {
	return func(ctx context.Context, req request.Request, next Next) (request.Response, error) {
		meta := observe.RequestMeta{
			Service:  req.Service,
			Endpoint: req.Endpoint,
			Method:   req.Method,
			Protocol: req.Protocol.String(),
		}

		ctx, span := tracer.StartSpan(ctx, meta)
		resp, err := next(ctx, req)
		tracer.EndSpan(span, err)

		return resp, err
	}
}
