package wsclient

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is a WebSocket supervisor's connection lifecycle state.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseOpen
	PhaseDraining
	PhaseReconnecting
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseDraining:
		return "draining"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrClosed     = errors.New("wsclient: supervisor is closed")
	ErrDraining   = errors.New("wsclient: supervisor is draining, no new sends accepted")
	ErrQueueFull  = errors.New("wsclient: outbound queue full")
	ErrAckTimeout = errors.New("wsclient: acknowledgement not received in time")
)

// Conn is the minimal duplex transport a Supervisor drives. Recv blocks
// until a frame arrives, ctx is cancelled, or the connection fails.
type Conn interface {
	Send(ctx context.Context, frame []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens one connection attempt.
type Dialer func(ctx context.Context) (Conn, error)

// Encoder embeds a generated message id into an outbound payload, so a
// later inbound frame can be matched back to it via Decoder. The default
// encoder returns payload unchanged; acknowledgement matching only works
// end to end when both Encoder and Decoder understand the same wire
// convention for carrying the id.
type Encoder func(id string, payload []byte) []byte

// Decoder inspects one inbound frame. If it is an acknowledgement, it
// returns the id it acknowledges, any failure the remote reported for that
// send, and ok=true. Otherwise it returns ok=false and the frame is
// delivered to Inbound() as an ordinary message.
type Decoder func(frame []byte) (id string, ackErr error, ok bool)

// Config configures a Supervisor. Zero-value durations fall back to the
// defaults noted below.
type Config struct {
	Dialer Dialer

	// HeartbeatInterval is how often a heartbeat frame is sent while open.
	// No heartbeat observed for more than 2x this interval moves the
	// session to reconnecting. Default: 15s.
	HeartbeatInterval time.Duration

	// BaseBackoff and MaxBackoff bound the reconnect delay:
	// min(MaxBackoff, BaseBackoff * 2^attempts). Defaults: 500ms, 30s.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// MaxQueueSize bounds the outbound queue. Default: 256.
	MaxQueueSize int

	// AckTimeout bounds how long Send waits for a requested acknowledgement.
	// Default: 10s.
	AckTimeout time.Duration

	Encode Encoder
	Decode Decoder

	// Heartbeat builds the frame sent as a heartbeat. Default: empty frame.
	Heartbeat func() []byte

	// OnPhaseChange is invoked whenever the session moves between phases.
	OnPhaseChange func(from, to Phase)
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 256
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.Encode == nil {
		c.Encode = func(_ string, payload []byte) []byte { return payload }
	}
	if c.Heartbeat == nil {
		c.Heartbeat = func() []byte { return nil }
	}
}

type outboundMsg struct {
	id      string
	payload []byte
}

// Supervisor owns one WebSocket session's lifecycle and outbound traffic.
type Supervisor struct {
	cfg Config

	mu                 sync.Mutex
	phase              Phase
	conn               Conn
	queue              []outboundMsg
	pending            map[string]chan error
	reconnectAttempts  int
	closed             bool

	inbound chan []byte
	stopped chan struct{}
}

// NewSupervisor creates a Supervisor. Call Start to begin dialing.
func NewSupervisor(cfg Config) *Supervisor {
	cfg.applyDefaults()
	return &Supervisor{
		cfg:     cfg,
		phase:   PhaseConnecting,
		pending: make(map[string]chan error),
		inbound: make(chan []byte, 64),
		stopped: make(chan struct{}),
	}
}

// Phase returns the current lifecycle phase.
func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Inbound delivers non-acknowledgement frames received from the remote, in
// arrival order.
func (s *Supervisor) Inbound() <-chan []byte {
	return s.inbound
}

// Start begins the connect/serve/reconnect loop. It returns once the
// session reaches PhaseClosed (ctx cancellation or a call to Close).
func (s *Supervisor) Start(ctx context.Context) {
	defer close(s.stopped)
	defer s.closeInternal()

	for {
		if ctx.Err() != nil {
			return
		}
		s.setPhase(PhaseConnecting)

		conn, err := s.cfg.Dialer(ctx)
		if err != nil {
			if !s.waitReconnectDelay(ctx) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.reconnectAttempts = 0
		s.mu.Unlock()

		s.setPhase(PhaseOpen)
		s.flushQueue(ctx, conn)
		s.serve(ctx, conn)
		_ = conn.Close()

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}

		s.setPhase(PhaseReconnecting)
		if !s.waitReconnectDelay(ctx) {
			return
		}
	}
}

// Close moves the session to PhaseClosed, cancels the queue, and fails
// every pending acknowledgement. Idempotent.
func (s *Supervisor) Close() {
	s.closeInternal()
}

func (s *Supervisor) closeInternal() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.phase = PhaseClosed
	s.queue = nil
	pending := s.pending
	s.pending = make(map[string]chan error)
	conn := s.conn
	s.mu.Unlock()

	for _, ch := range pending {
		ch <- ErrClosed
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// Drain stops admitting new sends, waits for the outbound queue to empty
// (bounded by ctx), then closes the session. Any send already matched to a
// pending ack is unaffected; it will still resolve via Close's cancellation
// if it outlives the drain.
func (s *Supervisor) Drain(ctx context.Context) {
	s.setPhase(PhaseDraining)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

drain:
	for {
		s.mu.Lock()
		empty := len(s.queue) == 0
		s.mu.Unlock()
		if empty {
			break drain
		}
		select {
		case <-ctx.Done():
			break drain
		case <-ticker.C:
		}
	}

	s.closeInternal()
}

// Send transmits payload, encoding a generated id into it via Config.Encode.
// If the session is open and nothing is already queued ahead of it, the
// frame is written immediately; otherwise it is appended to the outbound
// queue and flushed in order once the session is next open. If requestAck
// is true, Send blocks until a matching acknowledgement arrives, AckTimeout
// elapses, or ctx is done.
func (s *Supervisor) Send(ctx context.Context, payload []byte, requestAck bool) error {
	id := s.newID()

	var ackCh chan error
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.phase == PhaseDraining {
		s.mu.Unlock()
		return ErrDraining
	}
	if requestAck {
		ackCh = make(chan error, 1)
		s.pending[id] = ackCh
	}

	if s.phase == PhaseOpen && len(s.queue) == 0 {
		conn := s.conn
		s.mu.Unlock()
		if err := conn.Send(ctx, s.cfg.Encode(id, payload)); err == nil {
			if !requestAck {
				return nil
			}
			return s.awaitAck(ctx, id, ackCh)
		}
		s.mu.Lock()
	}

	if len(s.queue) >= s.cfg.MaxQueueSize {
		delete(s.pending, id)
		s.mu.Unlock()
		return ErrQueueFull
	}
	s.queue = append(s.queue, outboundMsg{id: id, payload: payload})
	s.mu.Unlock()

	if !requestAck {
		return nil
	}
	return s.awaitAck(ctx, id, ackCh)
}

func (s *Supervisor) awaitAck(ctx context.Context, id string, ackCh chan error) error {
	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case err := <-ackCh:
		return err
	case <-timer.C:
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return ErrAckTimeout
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return ctx.Err()
	}
}

// flushQueue drains the outbound queue in FIFO order onto conn. A write
// failure puts the undelivered message back at the front of the queue so
// the next flush, after reconnecting, resumes exactly where this one left
// off -- preserving order across reconnects.
func (s *Supervisor) flushQueue(ctx context.Context, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) > 0 {
		msg := s.queue[0]
		if err := conn.Send(ctx, s.cfg.Encode(msg.id, msg.payload)); err != nil {
			s.queue[0] = msg
			return
		}
		s.queue = s.queue[1:]
	}
}

// serve reads frames and sends heartbeats until the connection fails, the
// heartbeat watchdog trips, or ctx is done.
func (s *Supervisor) serve(ctx context.Context, conn Conn) {
	frames := make(chan []byte)
	recvErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			frame, err := conn.Recv(ctx)
			if err != nil {
				select {
				case recvErr <- err:
				default:
				}
				return
			}
			select {
			case frames <- frame:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	lastHeartbeat := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-recvErr:
			return
		case frame := <-frames:
			lastHeartbeat = time.Now()
			s.handleFrame(frame)
		case <-ticker.C:
			if time.Since(lastHeartbeat) > 2*s.cfg.HeartbeatInterval {
				return
			}
			if err := conn.Send(ctx, s.cfg.Heartbeat()); err != nil {
				return
			}
		}
	}
}

func (s *Supervisor) handleFrame(frame []byte) {
	if s.cfg.Decode != nil {
		if id, ackErr, ok := s.cfg.Decode(frame); ok {
			s.mu.Lock()
			ch, found := s.pending[id]
			delete(s.pending, id)
			s.mu.Unlock()
			if found {
				ch <- ackErr
			}
			return
		}
	}

	select {
	case s.inbound <- frame:
	default:
		// Slow consumer: drop rather than block the read loop and starve
		// the heartbeat watchdog.
	}
}

// waitReconnectDelay sleeps min(MaxBackoff, BaseBackoff*2^attempts) with a
// small jitter, incrementing the attempt counter. Returns false if ctx was
// cancelled or the session was closed while waiting.
func (s *Supervisor) waitReconnectDelay(ctx context.Context) bool {
	s.mu.Lock()
	attempt := s.reconnectAttempts
	s.reconnectAttempts++
	s.mu.Unlock()

	delay := reconnectDelay(s.cfg.BaseBackoff, s.cfg.MaxBackoff, attempt)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	return !closed
}

// reconnectDelay computes min(maxBackoff, baseBackoff*2^attempt) with a
// small jitter, the same exponential-backoff shape used for call retries.
func reconnectDelay(base, max time.Duration, attempt int) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max || delay <= 0 {
		delay = max
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	jitter := time.Duration(float64(delay) * 0.2 * rand.Float64())
	return delay - jitter
}

func (s *Supervisor) setPhase(p Phase) {
	s.mu.Lock()
	from := s.phase
	s.phase = p
	s.mu.Unlock()
	if from != p && s.cfg.OnPhaseChange != nil {
		s.cfg.OnPhaseChange(from, p)
	}
}

func (s *Supervisor) newID() string {
	return uuid.NewString()
}
