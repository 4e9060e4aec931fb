package request

import "time"

// Body is an opaque payload plus the content-type tag the caller built it
// with. The pipeline and its interceptors never interpret Bytes; only the
// Transport and the caller's own serialization layer do.
type Body struct {
	Bytes       []byte
	ContentType string
}

// Request is the immutable value a per-protocol builder produces and the
// pipeline executes. Every mutating operation (WithHeader, WithAttribute,
// ...) returns a new Request; the receiver is left untouched.
type Request struct {
	Service   string
	Endpoint  string // URL path template, RPC method name, or SOAP operation name
	Method    string // verb: GET/POST/... for REST, RPC method for gRPC, operation for SOAP
	Protocol  Protocol

	Headers     MultiMap
	Query       MultiMap
	PathParams  map[string]string
	Body        Body
	Timeout     time.Duration // 0 means "use the adaptive/default timeout"
	Attributes  map[string]any
}

// New builds the base Request. Headers and Query start empty; PathParams and
// Attributes start nil (copy-on-write allocates lazily).
func New(service, endpoint, method string, protocol Protocol) Request {
	return Request{
		Service:  service,
		Endpoint: endpoint,
		Method:   method,
		Protocol: protocol,
		Headers:  NewMultiMap(),
		Query:    NewMultiMap(),
	}
}

// WithHeader returns a copy of r with header added (additive — use
// WithHeaderSet to replace).
func (r Request) WithHeader(key, value string) Request {
	r.Headers = r.Headers.Add(key, value)
	return r
}

// WithHeaderSet returns a copy of r with every existing value of key
// replaced by value.
func (r Request) WithHeaderSet(key, value string) Request {
	r.Headers = r.Headers.Set(key, value)
	return r
}

// WithQuery returns a copy of r with a query parameter added.
func (r Request) WithQuery(key, value string) Request {
	r.Query = r.Query.Add(key, value)
	return r
}

// WithPathParam returns a copy of r with a path parameter set.
func (r Request) WithPathParam(key, value string) Request {
	cp := make(map[string]string, len(r.PathParams)+1)
	for k, v := range r.PathParams {
		cp[k] = v
	}
	cp[key] = value
	r.PathParams = cp
	return r
}

// WithBody returns a copy of r with the body replaced.
func (r Request) WithBody(b Body) Request {
	r.Body = b
	return r
}

// WithTimeout returns a copy of r with a per-call timeout override. A caller-
// supplied timeout always wins over any adaptively computed timeout.
func (r Request) WithTimeout(d time.Duration) Request {
	r.Timeout = d
	return r
}

// WithAttribute returns a copy of r with an interceptor-scoped attribute set.
// Attributes are for interceptor bookkeeping (e.g. a request id generated in
// a pre-phase interceptor) and are never sent on the wire.
func (r Request) WithAttribute(key string, value any) Request {
	cp := make(map[string]any, len(r.Attributes)+1)
	for k, v := range r.Attributes {
		cp[k] = v
	}
	cp[key] = value
	r.Attributes = cp
	return r
}

// Attribute returns an interceptor-scoped attribute and whether it was set.
func (r Request) Attribute(key string) (any, bool) {
	v, ok := r.Attributes[key]
	return v, ok
}
