package pipeline

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"

	"github.com/aperturestack/svcclient/request"
	"github.com/aperturestack/svcclient/svcerr"
)

// classify maps one attempt's transport outcome to a *svcerr.ServiceError, or
// nil on success. transportErr is a genuine transport-level fault; resp is
// the wire-level response the error mapper interprets when transportErr is
// nil but resp.Success is false.
func classify(req request.Request, resp request.Response, transportErr error, errCtx svcerr.ErrorContext) *svcerr.ServiceError {
	if transportErr != nil {
		return classifyTransportErr(transportErr, errCtx)
	}

	if resp.Success {
		return nil
	}

	builder := svcerr.NewContextBuilder(req.Service, req.Endpoint, req.Method, req.Protocol).
		Elapsed(errCtx.Elapsed).
		RetryAttempt(errCtx.RetryAttempt)

	switch req.Protocol {
	case svcerr.ProtocolGRPC:
		return svcerr.MapGRPC(builder, codes.Code(resp.StatusCode), grpcMessage(resp), resp.TerminalErr)
	case svcerr.ProtocolSOAP:
		return mapSoapFault(builder, resp)
	default:
		retryAfter := -1
		if h, ok := resp.Headers.Get("Retry-After"); ok {
			retryAfter = svcerr.ParseRetryAfter(h)
		}
		return svcerr.MapHTTP(builder, resp.StatusCode, resp.Body.Bytes, retryAfter, resp.TerminalErr)
	}
}

// classifyTransportErr wraps a failure that never produced a wire response:
// an already-tagged ServiceError passes through with its context refreshed,
// a context deadline becomes a Timeout, and anything else is a Connection
// error.
func classifyTransportErr(transportErr error, errCtx svcerr.ErrorContext) *svcerr.ServiceError {
	if svcErr, ok := svcerr.As(transportErr); ok {
		return svcErr.WithContext(errCtx)
	}
	if errors.Is(transportErr, context.DeadlineExceeded) {
		return svcerr.NewAttemptTimeout(errCtx, transportErr)
	}
	return svcerr.NewConnection(errCtx, transportErr)
}

func grpcMessage(resp request.Response) string {
	if v, ok := resp.Attribute("grpc.message"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return string(resp.Body.Bytes)
}

// mapSoapFault builds a SoapFault ServiceError from the fault metadata a
// SOAP Transport attaches to a failure Response's Attributes.
func mapSoapFault(b *svcerr.ContextBuilder, resp request.Response) *svcerr.ServiceError {
	faultCode, _ := resp.Attribute("soap.faultCode")
	isServerFault, _ := resp.Attribute("soap.isServerFault")
	fc, _ := faultCode.(string)
	isf, _ := isServerFault.(bool)
	return svcerr.NewSoapFault(fc, string(resp.Body.Bytes), isf, b.Build(), resp.TerminalErr)
}
