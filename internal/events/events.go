// Package events provides a lightweight in-process change feed. The work
// item store emits an event on every mutation; the durable state store and
// the API's subscription endpoint consume them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell/internal/domain"
)

// ItemChangeEvent describes one observed mutation of a work item.
type ItemChangeEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// ItemID identifies the mutated work item
	ItemID string `json:"item_id"`

	// Status is the item's status after the mutation
	Status domain.WorkItemStatus `json:"status"`

	// At is the timestamp when the event was created
	At time.Time `json:"at"`
}

// NewItemChangeEvent creates a change event for the given item.
func NewItemChangeEvent(itemID string, status domain.WorkItemStatus) *ItemChangeEvent {
	return &ItemChangeEvent{
		ID:     uuid.New(),
		ItemID: itemID,
		Status: status,
		At:     time.Now().UTC(),
	}
}

// Handler defines an interface for components that can handle change events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ItemChangeEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *ItemChangeEvent) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ItemChangeEvent) error {
	return f(ctx, event)
}

// Emitter defines an interface for components that can emit change events.
// This allows the store to publish events without direct knowledge of
// handlers.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ItemChangeEvent) error

	// RegisterHandler adds a new handler to receive events.
	RegisterHandler(handler Handler)
}
