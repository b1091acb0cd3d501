package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/inkwell-ai/inkwell/internal/events"
)

// EventsHandler streams work item change events to clients over
// server-sent events. It registers one handler on the change emitter and
// fans events out to per-connection channels; slow clients drop events
// rather than blocking the store's mutation path.
type EventsHandler struct {
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[int]chan *events.ItemChangeEvent
	nextID      int
}

// NewEventsHandler creates an EventsHandler and registers it on the emitter.
func NewEventsHandler(emitter events.Emitter, logger *slog.Logger) *EventsHandler {
	h := &EventsHandler{
		logger:      logger.With("handler", "events"),
		subscribers: make(map[int]chan *events.ItemChangeEvent),
	}
	emitter.RegisterHandler(events.HandlerFunc(h.fanOut))
	return h
}

// fanOut delivers an event to every subscriber without blocking.
func (h *EventsHandler) fanOut(_ context.Context, event *events.ItemChangeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Debug("dropping event for slow subscriber", "subscriber", id)
		}
	}
	return nil
}

// subscribe registers a new connection channel and returns it with its
// unsubscribe function.
func (h *EventsHandler) subscribe() (chan *events.ItemChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan *events.ItemChangeEvent, 64)
	h.subscribers[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
	}
}

// Stream handles GET /api/events requests with a server-sent-events
// response that lasts until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsubscribe := h.subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-ch:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode change event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: item_change\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
