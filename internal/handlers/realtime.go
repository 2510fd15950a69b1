package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vnthuan01/law-stand-sub001/internal/transport"
)

// The hub pushes two independently-keyed event channels.
const (
	EventMessage      = "ReceiveMessage"
	EventNotification = "ReceiveNotification"
)

func validStreamChannel(name string) bool {
	return name == EventMessage || name == EventNotification
}

func (s *Server) RealtimeConnection(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{
		"state":        string(s.Hub.State()),
		"connectionId": s.Hub.ConnectionID(),
	})
}

// StreamMessages bridges one hub event channel onto SSE. The hub handler is
// registered per client and its disposer runs when the client disconnects,
// so no handler outlives its consumer.
func (s *Server) StreamMessages(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	channel := r.URL.Query().Get("channel")
	if !validStreamChannel(channel) {
		log.Warn("messages stream: unknown channel", slog.String("channel", channel))
		transport.WriteError(w, http.StatusBadRequest, "unknown channel", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		transport.WriteError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	if err := s.Hub.Connect(r.Context()); err != nil {
		writeUpstreamError(w, log, "messages stream", err)
		return
	}

	// Buffered so a slow SSE write drops frames instead of stalling the
	// hub's dispatch loop.
	events := make(chan []byte, 16)
	dispose := s.Hub.On(channel, func(payload []byte) {
		select {
		case events <- payload:
		default:
		}
	})
	defer dispose()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Info("messages stream: subscribed", slog.String("channel", channel))
	for {
		select {
		case <-r.Context().Done():
			log.Info("messages stream: closed", slog.String("channel", channel))
			return
		case payload := <-events:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", channel, payload)
			flusher.Flush()
		}
	}
}
