package interceptor

import (
	"context"
	"sort"

	"github.com/aperturestack/svcclient/request"
)

// Next invokes the remainder of the chain.
type Next func(ctx context.Context, req request.Request) (request.Response, error)

// Interceptor may replace the request, add headers/attributes, observe
// outcomes, short-circuit with a synthetic response, or fail. It must call
// next exactly once to continue the chain, or return without calling it to
// short-circuit.
type Interceptor func(ctx context.Context, req request.Request, next Next) (request.Response, error)

// entry pairs an Interceptor with its ordering priority.
type entry struct {
	priority    int
	interceptor Interceptor
}

// Chain is a static, priority-ordered sequence of interceptors. Registration
// happens once at construction; Execute threads an index through the
// sequence so each interceptor's next closes over the following one.
type Chain struct {
	entries []entry
}

// NewChain builds a Chain from the given interceptors, sorted by priority
// (lower runs first, ties broken by registration order).
func NewChain(interceptors ...Registration) *Chain {
	entries := make([]entry, len(interceptors))
	for i, r := range interceptors {
		entries[i] = entry{priority: r.Priority, interceptor: r.Interceptor}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	return &Chain{entries: entries}
}

// Registration pairs an Interceptor with its stable ordering priority.
type Registration struct {
	Priority    int
	Interceptor Interceptor
}

// Execute runs the chain, terminating in terminal which performs the actual
// call (transport invocation, retry loop, whatever the caller wires as the
// bottom of the chain).
func (c *Chain) Execute(ctx context.Context, req request.Request, terminal Next) (request.Response, error) {
	return c.runFrom(0, ctx, req, terminal)
}

func (c *Chain) runFrom(idx int, ctx context.Context, req request.Request, terminal Next) (request.Response, error) {
	if idx >= len(c.entries) {
		return terminal(ctx, req)
	}
	current := c.entries[idx]
	next := func(ctx context.Context, req request.Request) (request.Response, error) {
		return c.runFrom(idx+1, ctx, req, terminal)
	}
	return current.interceptor(ctx, req, next)
}

// Len returns the number of registered interceptors.
func (c *Chain) Len() int { return len(c.entries) }
