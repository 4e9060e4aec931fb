package svcerr

import (
	"strconv"
	"time"
)

// MapHTTP translates an HTTP response into the shared error taxonomy. b is
// the in-progress ErrorContext builder for this call; the
// status code and a truncated body snippet are recorded on it before the
// ErrorContext is built, so the wire status is never lost even when the
// mapping falls through to KindUnknown. retryAfterSeconds is the parsed value
// of a Retry-After header, or -1 if absent/unparseable.
func MapHTTP(b *ContextBuilder, status int, body []byte, retryAfterSeconds int, cause error) *ServiceError {
	b.HTTPStatus(status).Body(body)
	ctx := b.Build()

	msg := extractMessage(body)

	switch status {
	case 400:
		return New(KindValidation, fallback(msg, "bad request"), ctx, cause)
	case 422:
		e := New(KindUnprocessable, fallback(msg, "unprocessable entity"), ctx, cause)
		return e.WithFieldErrors(extractFieldErrors(body))
	case 401, 403:
		return New(KindAuthentication, fallback(msg, "authentication failed"), ctx, cause)
	case 404:
		return New(KindNotFound, fallback(msg, "not found"), ctx, cause)
	case 408:
		return New(KindTimeout, fallback(msg, "request timeout"), ctx, cause)
	case 409:
		return New(KindConflict, fallback(msg, "conflict"), ctx, cause)
	case 429:
		e := New(KindRateLimit, fallback(msg, "rate limit exceeded"), ctx, cause)
		if retryAfterSeconds >= 0 {
			e.WithSuggestedDelay(time.Duration(retryAfterSeconds) * time.Second)
		}
		return e
	case 500:
		return New(KindInternalError, fallback(msg, "internal server error"), ctx, cause)
	case 502, 503, 504:
		return New(KindTemporarilyUnavailable, fallback(msg, "service unavailable"), ctx, cause)
	default:
		return New(KindUnknown, fallback(msg, "unexpected status"), ctx, cause)
	}
}

// ParseRetryAfter parses an integer-seconds Retry-After header value. Returns
// -1 if the header is empty or not a non-negative integer; the HTTP-date form
// is not supported.
func ParseRetryAfter(header string) int {
	if header == "" {
		return -1
	}
	n, err := strconv.Atoi(header)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func fallback(primary, def string) string {
	if primary != "" {
		return primary
	}
	return def
}
