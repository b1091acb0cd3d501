package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewItemChangeEvent(t *testing.T) {
	t.Parallel()

	event := NewItemChangeEvent("item-1", domain.StatusRunning)

	assert.NotEqual(t, [16]byte{}, [16]byte(event.ID))
	assert.Equal(t, "item-1", event.ItemID)
	assert.Equal(t, domain.StatusRunning, event.Status)
	assert.False(t, event.At.IsZero())
}

func TestInMemoryEmitter_DispatchesToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEmitter(testLogger())

	var got []string
	for i := 0; i < 3; i++ {
		emitter.RegisterHandler(HandlerFunc(func(_ context.Context, e *ItemChangeEvent) error {
			got = append(got, e.ItemID)
			return nil
		}))
	}

	err := emitter.EmitEvent(context.Background(), NewItemChangeEvent("item-1", domain.StatusQueued))
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1", "item-1", "item-1"}, got)
}

func TestInMemoryEmitter_NoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEmitter(testLogger())
	err := emitter.EmitEvent(context.Background(), NewItemChangeEvent("item-1", domain.StatusIdle))
	assert.NoError(t, err)
}

func TestInMemoryEmitter_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEmitter(testLogger())
	errFirst := errors.New("first handler failed")

	emitter.RegisterHandler(HandlerFunc(func(context.Context, *ItemChangeEvent) error {
		return errFirst
	}))
	called := false
	emitter.RegisterHandler(HandlerFunc(func(context.Context, *ItemChangeEvent) error {
		called = true
		return errors.New("second handler failed")
	}))

	err := emitter.EmitEvent(context.Background(), NewItemChangeEvent("item-1", domain.StatusError))

	assert.ErrorIs(t, err, errFirst, "the first error wins")
	assert.True(t, called, "later handlers still run")
}
