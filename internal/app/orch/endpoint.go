package orch

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State of one connection's protocol.
type State int32

const (
	Unauthenticated State = iota
	Authorizing
	Joining
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authorizing:
		return "authorizing"
	case Joining:
		return "joining"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// endpoint is the part shared by every session kind: identity, state,
// a bounded mailbox filled by the bus and drained by Run.
type endpoint struct {
	id     core.SubscriberID
	uid    atomic.Int64
	state  atomic.Int32
	inbox  chan domain.Event
	done   chan struct{}
	halt   sync.Once
	logger zerolog.Logger

	mu   sync.RWMutex
	conn core.SignalConnection
}

func newEndpoint(id core.SubscriberID, mailbox int, module string) endpoint {
	return endpoint{
		id:     id,
		inbox:  make(chan domain.Event, mailbox),
		done:   make(chan struct{}),
		logger: log.With().Str("module", module).Str("conn", string(id)).Logger(),
	}
}

func (e *endpoint) ID() core.SubscriberID { return e.id }

func (e *endpoint) UserID() domain.UserID { return domain.UserID(e.uid.Load()) }

func (e *endpoint) State() State { return State(e.state.Load()) }

func (e *endpoint) setState(s State) { e.state.Store(int32(s)) }

// Deliver enqueues ev without blocking.
func (e *endpoint) Deliver(ev domain.Event) error {
	select {
	case <-e.done:
		return domain.ErrClosed
	default:
	}
	select {
	case e.inbox <- ev:
		return nil
	default:
		return domain.ErrBackpressure
	}
}

func (e *endpoint) Close(code int, reason string) {
	e.mu.RLock()
	conn := e.conn
	e.mu.RUnlock()
	if conn != nil {
		conn.Close(code, reason)
	}
}

func (e *endpoint) attach(conn core.SignalConnection) {
	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()
}

func (e *endpoint) stop() {
	e.halt.Do(func() { close(e.done) })
}

// send writes one frame to this connection only.
func (e *endpoint) send(ev domain.Event) {
	e.mu.RLock()
	conn := e.conn
	e.mu.RUnlock()
	if conn == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error().Err(err).Str("type", string(ev.Type)).Msg("marshal event")
		return
	}
	if err := conn.TrySend(b); err != nil {
		e.logger.Warn().Err(err).Str("type", string(ev.Type)).Msg("send dropped")
	}
}

func (e *endpoint) sendError(err error) {
	e.send(domain.NewEvent(domain.EventError).With(domain.FieldError, err.Error()))
}

// run drains the mailbox through forward until the endpoint stops or ctx ends.
func (e *endpoint) run(ctx context.Context, forward func(domain.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case ev := <-e.inbox:
			forward(ev)
		}
	}
}
