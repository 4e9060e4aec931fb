package request

import "time"

// Response is the value the pipeline returns for a successful (or
// synthetically short-circuited) call. StatusCode is -1 when the protocol has
// no numeric status (e.g. a successful SOAP call).
type Response struct {
	Body        Body
	StatusCode  int
	Headers     MultiMap
	Elapsed     time.Duration
	Success     bool
	TerminalErr error // set only when Success is false but a Response was still synthesized
	Attributes  map[string]any
}

// NewResponse builds a successful Response.
func NewResponse(body Body, statusCode int, headers MultiMap, elapsed time.Duration) Response {
	return Response{
		Body:       body,
		StatusCode: statusCode,
		Headers:    headers,
		Elapsed:    elapsed,
		Success:    true,
	}
}

// WithAttribute returns a copy of resp with an interceptor-scoped attribute
// set.
func (resp Response) WithAttribute(key string, value any) Response {
	cp := make(map[string]any, len(resp.Attributes)+1)
	for k, v := range resp.Attributes {
		cp[k] = v
	}
	cp[key] = value
	resp.Attributes = cp
	return resp
}

// Attribute returns an interceptor-scoped attribute and whether it was set.
func (resp Response) Attribute(key string) (any, bool) {
	v, ok := resp.Attributes[key]
	return v, ok
}
