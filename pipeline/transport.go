package pipeline

import (
	"context"
	"sync"

	"github.com/aperturestack/svcclient/request"
)

// Transport sends one prepared Request over the wire. It returns the raw
// Response -- which may carry a non-success status for the error mapper to
// classify -- or a transport-level error: dial failure, DNS failure, TLS
// handshake failure, or a deadline/cancellation propagated through ctx. The
// pipeline never constructs protocol wire bytes itself; that is entirely
// this interface's job, one implementation per protocol (REST, gRPC, SOAP).
//
// A Response with Success == false is not a transport error: it means the
// call round-tripped and carries a status the error mapper must interpret
// (an HTTP 4xx/5xx, a non-OK gRPC code, a SOAP fault). Reserve the error
// return for failures that never produced a wire response at all.
type Transport interface {
	Send(ctx context.Context, req request.Request) (request.Response, error)
	SendStream(ctx context.Context, req request.Request) (*StreamHandle, error)
}

// StreamItem is one frame of a streamed call.
type StreamItem struct {
	Response request.Response
	Err      error
}

// StreamHandle is the caller-facing handle for a call opened by
// executeStream. Items arrive in order on Items(); the channel is closed
// once the stream ends, successfully or not, and Done() closes at the same
// moment. Err() reports the terminating error, if any, and is only safe to
// read after Done() has closed.
type StreamHandle struct {
	items chan StreamItem
	done  chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// NewStreamHandle creates a StreamHandle with the given item buffer size.
// Transport implementations construct one per opened stream and push items
// via Push, finishing with Close.
func NewStreamHandle(bufferSize int) *StreamHandle {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &StreamHandle{
		items: make(chan StreamItem, bufferSize),
		done:  make(chan struct{}),
	}
}

// Items returns the channel of incoming stream frames.
func (h *StreamHandle) Items() <-chan StreamItem {
	return h.items
}

// Done closes when the stream has ended.
func (h *StreamHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the error that ended the stream, or nil for a clean close.
// Only meaningful after Done() has closed.
func (h *StreamHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Push delivers one frame to the stream's consumer. It must not be called
// after Close.
func (h *StreamHandle) Push(item StreamItem) {
	h.items <- item
}

// Close finalizes the stream with a terminating error (nil for a clean end)
// and closes both Items() and Done(). Safe to call more than once; only the
// first call has effect.
func (h *StreamHandle) Close(err error) {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		close(h.items)
		close(h.done)
	})
}
