package interceptor

import (
	"context"
	"strings"
	"time"

	"github.com/aperturestack/svcclient/observe"
	"github.com/aperturestack/svcclient/request"
)

// Verbosity controls how much of a request/response the Logging interceptor
// records.
type Verbosity int

const (
	// VerbosityNone logs nothing.
	VerbosityNone Verbosity = iota
	// VerbosityBasic logs method, endpoint, status, and elapsed time.
	VerbosityBasic
	// VerbosityHeaders adds request/response headers (sensitive ones masked).
	VerbosityHeaders
	// VerbosityFull adds bodies, truncated at MaxBodyBytes.
	VerbosityFull
)

// sensitiveHeaders are masked case-insensitively regardless of verbosity.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,
}

const maskedValue = "[REDACTED]"

// LoggingConfig configures the Logging interceptor.
type LoggingConfig struct {
	Verbosity    Verbosity
	MaxBodyBytes int // 0 disables truncation: at FULL verbosity the body is logged in full
}

// Logging builds a request/response logging interceptor bound to logger.
// Grounded on observe.structuredLogger's field redaction idiom, generalized
// from a tool-input field list to the sensitive HTTP header name list.
func Logging(logger observe.Logger, cfg LoggingConfig) Interceptor {
	return func(ctx context.Context, req request.Request, next Next) (request.Response, error) {
		if cfg.Verbosity == VerbosityNone {
			return next(ctx, req)
		}

		start := time.Now()
		fields := []observe.Field{
			{Key: "service", Value: req.Service},
			{Key: "endpoint", Value: req.Endpoint},
			{Key: "method", Value: req.Method},
		}
		if cfg.Verbosity >= VerbosityHeaders {
			fields = append(fields, observe.Field{Key: "request.headers", Value: maskedHeaders(req.Headers)})
		}
		if cfg.Verbosity >= VerbosityFull {
			fields = append(fields, observe.Field{Key: "request.body", Value: truncatedBody(req.Body.Bytes, cfg.MaxBodyBytes)})
		}
		logger.Debug(ctx, "request started", fields...)

		resp, err := next(ctx, req)
		elapsed := time.Since(start)

		outcome := []observe.Field{
			{Key: "service", Value: req.Service},
			{Key: "endpoint", Value: req.Endpoint},
			{Key: "duration_ms", Value: float64(elapsed.Milliseconds())},
		}
		if err != nil {
			outcome = append(outcome, observe.Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "request failed", outcome...)
			return resp, err
		}

		outcome = append(outcome, observe.Field{Key: "status_code", Value: resp.StatusCode})
		if cfg.Verbosity >= VerbosityHeaders {
			outcome = append(outcome, observe.Field{Key: "response.headers", Value: maskedHeaders(resp.Headers)})
		}
		if cfg.Verbosity >= VerbosityFull {
			outcome = append(outcome, observe.Field{Key: "response.body", Value: truncatedBody(resp.Body.Bytes, cfg.MaxBodyBytes)})
		}
		logger.Info(ctx, "request completed", outcome...)

		return resp, nil
	}
}

func maskedHeaders(h request.MultiMap) map[string][]string {
	out := make(map[string][]string, h.Len())
	h.Each(func(key, value string) {
		if sensitiveHeaders[strings.ToLower(key)] {
			value = maskedValue
		}
		out[key] = append(out[key], value)
	})
	return out
}

func truncatedBody(body []byte, maxBytes int) string {
	if maxBytes <= 0 || len(body) <= maxBytes {
		return string(body)
	}
	return string(body[:maxBytes]) + "...(truncated)"
}
