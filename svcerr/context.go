package svcerr

import "time"

// maxBodySnippet is the maximum number of response body bytes retained on
// an ErrorContext (spec: truncated response body <= 1000 bytes).
const maxBodySnippet = 1000

// Protocol tags the wire protocol a call used.
type Protocol int

const (
	ProtocolREST Protocol = iota
	ProtocolGRPC
	ProtocolSOAP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolREST:
		return "REST"
	case ProtocolGRPC:
		return "GRPC"
	case ProtocolSOAP:
		return "SOAP"
	default:
		return "UNKNOWN"
	}
}

// ErrorContext is the immutable metadata attached to every ServiceError. It
// is built once on the failure path via ContextBuilder and never mutated
// afterward.
type ErrorContext struct {
	Service         string
	Endpoint        string
	Method          string
	Protocol        Protocol
	RequestID       string
	CorrelationID   string
	Timestamp       time.Time
	HTTPStatus      int    // 0 when not applicable
	GRPCStatus      string // "" when not applicable
	BodySnippet     string // truncated to maxBodySnippet bytes
	Headers         map[string]string
	Elapsed         time.Duration
	RetryAttempt    int
	Attributes      map[string]any
}

// ContextBuilder constructs an ErrorContext. Zero value is ready to use; all
// setters return the builder for chaining and are cheap (no allocation
// beyond what's stored).
type ContextBuilder struct {
	ctx ErrorContext
}

// NewContextBuilder starts building an ErrorContext for the given call.
func NewContextBuilder(service, endpoint, method string, protocol Protocol) *ContextBuilder {
	return &ContextBuilder{ctx: ErrorContext{
		Service:   service,
		Endpoint:  endpoint,
		Method:    method,
		Protocol:  protocol,
		Timestamp: time.Now(),
	}}
}

func (b *ContextBuilder) RequestID(id string) *ContextBuilder {
	b.ctx.RequestID = id
	return b
}

func (b *ContextBuilder) CorrelationID(id string) *ContextBuilder {
	b.ctx.CorrelationID = id
	return b
}

func (b *ContextBuilder) HTTPStatus(status int) *ContextBuilder {
	b.ctx.HTTPStatus = status
	return b
}

func (b *ContextBuilder) GRPCStatus(status string) *ContextBuilder {
	b.ctx.GRPCStatus = status
	return b
}

// Body truncates and stores a snippet of a response body.
func (b *ContextBuilder) Body(body []byte) *ContextBuilder {
	if len(body) > maxBodySnippet {
		body = body[:maxBodySnippet]
	}
	b.ctx.BodySnippet = string(body)
	return b
}

// Headers stores a selected subset of response headers. The caller is
// responsible for selecting which headers are relevant; this builder does
// not apply sensitivity masking (that is the Logging interceptor's job).
func (b *ContextBuilder) Headers(h map[string]string) *ContextBuilder {
	if len(h) == 0 {
		return b
	}
	cp := make(map[string]string, len(h))
	for k, v := range h {
		cp[k] = v
	}
	b.ctx.Headers = cp
	return b
}

func (b *ContextBuilder) Elapsed(d time.Duration) *ContextBuilder {
	b.ctx.Elapsed = d
	return b
}

func (b *ContextBuilder) RetryAttempt(n int) *ContextBuilder {
	b.ctx.RetryAttempt = n
	return b
}

func (b *ContextBuilder) Attribute(key string, value any) *ContextBuilder {
	if b.ctx.Attributes == nil {
		b.ctx.Attributes = make(map[string]any)
	}
	b.ctx.Attributes[key] = value
	return b
}

// Build finalizes and returns the immutable ErrorContext.
func (b *ContextBuilder) Build() ErrorContext {
	return b.ctx
}

// WithRetryAttempt returns a copy of ctx with RetryAttempt set, used by the
// retry policy to stamp the attempt number onto a reused context without
// mutating the original.
func (c ErrorContext) WithRetryAttempt(n int) ErrorContext {
	c.RetryAttempt = n
	return c
}
