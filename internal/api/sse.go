package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/churrosoft/deck8-hub-go/internal/bridge"
)

const (
	sseBuffer    = 16
	sseKeepAlive = 30 * time.Second
)

type sseMessage struct {
	event string
	data  []byte
}

// sseEvents streams driver push events. Clients receive the current state
// as a state-updated event first.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	id := uuid.NewString()
	ch := make(chan sseMessage, sseBuffer)
	cancel := h.d.Subscribe(func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		select {
		case ch <- sseMessage{event: event, data: data}:
		default:
			slog.Debug("api: sse client slow, event dropped", "client", id, "event", event)
		}
	})
	defer cancel()
	h.metrics.sseClient(1)
	defer h.metrics.sseClient(-1)

	if state, err := h.d.Dispatch(r.Context(), bridge.CmdGetState, nil); err == nil {
		if data, err := json.Marshal(state); err == nil {
			sendSSE(w, flusher, sseMessage{event: bridge.EventStateUpdated, data: data})
		}
	}

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()
	for {
		select {
		case msg := <-ch:
			sendSSE(w, flusher, msg)
		case <-ping.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, m sseMessage) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.event, m.data)
	flusher.Flush()
}
