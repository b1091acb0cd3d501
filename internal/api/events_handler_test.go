package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/events"
)

func TestEventsHandler_StreamsChangeEvents(t *testing.T) {
	t.Parallel()

	emitter := events.NewInMemoryEmitter(testLogger())
	h := NewEventsHandler(emitter, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Stream(rec, req)
	}()

	// Wait for the connection to subscribe before emitting.
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.subscribers) == 1
	}, time.Second, time.Millisecond)

	err := emitter.EmitEvent(context.Background(),
		events.NewItemChangeEvent("item-1", domain.StatusRunning))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, ch := range h.subscribers {
			if len(ch) > 0 {
				return false // not consumed yet
			}
		}
		return true
	}, time.Second, time.Millisecond)

	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: item_change")
	assert.Contains(t, body, `"item_id":"item-1"`)
	assert.Contains(t, body, `"status":"running"`)

	// Disconnecting removed the subscription.
	h.mu.Lock()
	assert.Empty(t, h.subscribers)
	h.mu.Unlock()
}

func TestEventsHandler_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	emitter := events.NewInMemoryEmitter(testLogger())
	h := NewEventsHandler(emitter, testLogger())

	// A subscription nobody reads from: its buffer fills, then events are
	// dropped without stalling the emitter.
	_, unsubscribe := h.subscribe()
	defer unsubscribe()

	for i := 0; i < 200; i++ {
		err := emitter.EmitEvent(context.Background(),
			events.NewItemChangeEvent("item-1", domain.StatusRunning))
		require.NoError(t, err)
	}
}
