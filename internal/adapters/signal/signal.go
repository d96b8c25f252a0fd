package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/config"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gorilla/websocket"
)

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Cfg     *config.Config
	Limiter *RateLimiter

	// ctx bounds every accepted connection; cancelling it closes them all.
	ctx context.Context
}

func NewSignalWSController(ctx context.Context, o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		ctx:     ctx,
		Orch:    o,
		Cfg:     cfg,
		Limiter: NewRateLimiter(cfg.CommandRate, cfg.CommandBurst),
	}
}

// WsSignalConn is the write side of one accepted socket. Frames queue in
// send and are written by writePump.
type WsSignalConn struct {
	conn      *websocket.Conn
	send      chan core.Frame
	writeWait time.Duration

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int, writeWait time.Duration) *WsSignalConn {
	if buffer <= 0 {
		buffer = 32
	}
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer), writeWait: writeWait}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return domain.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return domain.ErrBackpressure
	}
	return nil
}

// Close sends a close frame with code and reason, then drops the socket.
// Safe to call more than once and from any goroutine.
func (c *WsSignalConn) Close(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
	_ = c.conn.Close()
}

func (c *WsSignalConn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// refuse answers a connection attempt that failed before the upgrade.
func refuse(err error) (int, string) {
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound, "not found"
	}
	return http.StatusForbidden, "forbidden"
}
