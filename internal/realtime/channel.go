// Package realtime maintains the gateway's single connection to the
// messaging hub: automatic reconnection, named server events fanned out to
// registered handlers, and request/response invocations over the socket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

const (
	handshakeTimeout = 10 * time.Second
	maxBackoff       = 30 * time.Second
)

var ErrNotConnected = errors.New("hub not connected")

// envelope is the hub's JSON frame. Invocations carry an id echoed by the
// result frame; server events carry a target and payload.
type envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type Handler func(payload []byte)

type Channel struct {
	url    string
	log    *slog.Logger
	dialer *websocket.Dialer

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	handlers    map[string]map[int]Handler
	nextHandler int
	pending     map[string]chan envelope
	connID      string
	stopped     bool

	writeMu sync.Mutex
}

func New(url string, log *slog.Logger) *Channel {
	return &Channel{
		url:      url,
		log:      log,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		state:    StateDisconnected,
		handlers: make(map[string]map[int]Handler),
		pending:  make(map[string]chan envelope),
	}
}

var (
	sharedMu sync.Mutex
	shared   *Channel
)

// Shared returns the process-wide channel, creating it lazily on first use.
// At most one live connection exists no matter how many callers ask.
func Shared(url string, log *slog.Logger) *Channel {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = New(url, log)
	}
	return shared
}

// Connect is idempotent: a connected or connecting channel is left alone.
// After the transport is up, the hub's connection id is fetched once; a
// failure there is logged and leaves the id empty.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting || c.state == StateReconnecting {
		c.mu.Unlock()
		return nil
	}
	c.stopped = false
	c.state = StateConnecting
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}

	c.attach(conn)
	return nil
}

func (c *Channel) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.readPump(conn)
	go c.fetchConnectionID()
}

func (c *Channel) fetchConnectionID() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := c.Invoke(ctx, "GetConnectionId")
	if err != nil {
		c.log.Warn("realtime: connection id fetch failed", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	c.connID = id
	c.mu.Unlock()
	c.log.Info("realtime: connected", slog.String("connection_id", id))
}

func (c *Channel) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.onTransportLoss(conn, err)
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("realtime: bad frame", slog.String("error", err.Error()))
			continue
		}

		switch env.Type {
		case "result":
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			if ok {
				delete(c.pending, env.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- env
			}
		case "event":
			c.dispatch(env.Target, env.Payload)
		}
	}
}

func (c *Channel) dispatch(event string, payload []byte) {
	c.mu.Lock()
	fns := make([]Handler, 0, len(c.handlers[event]))
	for _, fn := range c.handlers[event] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

func (c *Channel) onTransportLoss(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.failPendingLocked()
	if c.stopped {
		c.state = StateDisconnected
		c.mu.Unlock()
		return
	}
	c.state = StateReconnecting
	c.mu.Unlock()

	c.log.Warn("realtime: transport lost", slog.String("error", cause.Error()))
	go c.reconnect()
}

func (c *Channel) reconnect() {
	backoff := time.Second
	for {
		c.mu.Lock()
		if c.stopped {
			c.state = StateDisconnected
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, _, err := c.dialer.Dial(c.url, nil)
		if err == nil {
			c.attach(conn)
			return
		}

		c.log.Warn("realtime: reconnect failed", slog.String("error", err.Error()))
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// Invoke sends a request frame and waits for its result.
func (c *Channel) Invoke(ctx context.Context, method string) (string, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return "", ErrNotConnected
	}
	id := uuid.NewString()
	reply := make(chan envelope, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	if err := c.write(conn, envelope{Type: "invoke", ID: id, Target: method}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return "", err
	}

	select {
	case env := <-reply:
		if env.Error != "" {
			return "", errors.New(env.Error)
		}
		var result string
		if err := json.Unmarshal(env.Payload, &result); err != nil {
			return "", err
		}
		return result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return "", ctx.Err()
	}
}

func (c *Channel) write(conn *websocket.Conn, env envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(env)
}

// On registers a handler for a named event and returns its disposer. Each
// registration is independent: releasing one leaves the others untouched.
func (c *Channel) On(event string, fn Handler) func() {
	c.mu.Lock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	id := c.nextHandler
	c.nextHandler++
	c.handlers[event][id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if hs, ok := c.handlers[event]; ok {
			delete(hs, id)
			if len(hs) == 0 {
				delete(c.handlers, event)
			}
		}
		c.mu.Unlock()
	}
}

// Stop closes the connection and disables reconnection. Safe to call on a
// channel that never connected or is already stopped.
func (c *Channel) Stop() {
	c.mu.Lock()
	c.stopped = true
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.connID = ""
	c.failPendingLocked()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// failPendingLocked drops pending invocations so their callers time out via
// context instead of hanging past a dead connection. Caller holds c.mu.
func (c *Channel) failPendingLocked() {
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- envelope{Type: "result", ID: id, Error: "connection closed"}
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}
