package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeHub upgrades test connections, answers GetConnectionId and lets tests
// push named events to the latest client.
type fakeHub struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn
}

func (h *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if env.Type == "invoke" && env.Target == "GetConnectionId" {
			payload, _ := json.Marshal("conn-42")
			_ = conn.WriteJSON(envelope{Type: "result", ID: env.ID, Payload: payload})
		}
	}
}

func (h *fakeHub) current() *websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

// drop closes the server side of the current connection, simulating a
// transport loss the client did not ask for.
func (h *fakeHub) drop(t *testing.T) {
	t.Helper()
	conn := h.current()
	if conn == nil {
		t.Fatalf("no client connected")
	}
	_ = conn.Close()
}

func (h *fakeHub) emit(t *testing.T, event string, payload interface{}) {
	t.Helper()
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		t.Fatalf("no client connected")
	}
	raw, _ := json.Marshal(payload)
	if err := conn.WriteJSON(envelope{Type: "event", Target: event, Payload: raw}); err != nil {
		t.Fatalf("emit: %v", err)
	}
}

func startChannel(t *testing.T) (*Channel, *fakeHub) {
	t.Helper()
	hub := &fakeHub{}
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ch := New("ws"+strings.TrimPrefix(srv.URL, "http"), log)
	t.Cleanup(ch.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ch.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return ch, hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestConnectIsIdempotent(t *testing.T) {
	ch, _ := startChannel(t)

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if ch.State() != StateConnected {
		t.Fatalf("expected connected, got %s", ch.State())
	}
}

func TestConnectionIDFetchedOnce(t *testing.T) {
	ch, _ := startChannel(t)
	waitFor(t, func() bool { return ch.ConnectionID() == "conn-42" })
}

func TestOnOffHandlersAreIndependent(t *testing.T) {
	ch, hub := startChannel(t)
	waitFor(t, func() bool { return ch.ConnectionID() != "" })

	var mu sync.Mutex
	var firstCount, secondCount int
	disposeFirst := ch.On("eventA", func(payload []byte) {
		mu.Lock()
		firstCount++
		mu.Unlock()
	})
	ch.On("eventA", func(payload []byte) {
		mu.Lock()
		secondCount++
		mu.Unlock()
	})

	hub.emit(t, "eventA", "one")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstCount == 1 && secondCount == 1
	})

	disposeFirst()
	hub.emit(t, "eventA", "two")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return secondCount == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if firstCount != 1 {
		t.Fatalf("removed handler fired again: %d", firstCount)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	ch, hub := startChannel(t)
	waitFor(t, func() bool { return ch.ConnectionID() != "" })

	var mu sync.Mutex
	var count int
	ch.On("eventA", func(payload []byte) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	hub.emit(t, "eventB", "noise")
	hub.emit(t, "eventA", "signal")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})
}

func TestReconnectAfterTransportLoss(t *testing.T) {
	ch, hub := startChannel(t)
	waitFor(t, func() bool { return ch.ConnectionID() == "conn-42" })

	var mu sync.Mutex
	var count int
	ch.On("eventA", func(payload []byte) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	hub.emit(t, "eventA", "before")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	old := hub.current()
	hub.drop(t)

	// The channel dials a fresh transport on its own, without Connect.
	waitFor(t, func() bool { return hub.current() != nil && hub.current() != old })
	waitFor(t, func() bool { return ch.State() == StateConnected })

	// Handlers registered before the loss keep firing on the new transport.
	hub.emit(t, "eventA", "after")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 2
	})
}

func TestStopBeforeConnectDoesNotPanic(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ch := New("ws://127.0.0.1:1/hub", log)
	ch.Stop()
	ch.Stop()
	if ch.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", ch.State())
	}
}

func TestStopAfterConnect(t *testing.T) {
	ch, _ := startChannel(t)
	ch.Stop()
	if ch.State() != StateDisconnected {
		t.Fatalf("expected disconnected after stop, got %s", ch.State())
	}
	if ch.ConnectionID() != "" {
		t.Fatalf("connection id must reset on stop")
	}
	ch.Stop()
}

func TestInvokeWithoutConnection(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ch := New("ws://127.0.0.1:1/hub", log)
	if _, err := ch.Invoke(context.Background(), "GetConnectionId"); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
