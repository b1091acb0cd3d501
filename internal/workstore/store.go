package workstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/events"
)

// Patch describes a partial update of a work item. Nil fields are left
// untouched; a non-nil Status must be a legal transition from the item's
// current status.
type Patch struct {
	Status         *domain.WorkItemStatus
	ProgressText   *string
	Stage          *string
	ResultPayload  *string
	ErrorInfo      *domain.ErrorInfo
	IncrementRetry bool
}

// StatusPatch builds a patch that only changes the status.
func StatusPatch(status domain.WorkItemStatus) Patch {
	return Patch{Status: &status}
}

// Store is the single source of truth for all work items. All mutation is
// serialized through Update, which merges a patch, enforces the
// legal-transition invariant, and notifies the change emitter.
type Store struct {
	mu      sync.RWMutex
	items   map[string]*domain.WorkItem
	order   []string
	emitter events.Emitter
	logger  *slog.Logger
}

// NewStore creates an empty Store. The emitter may be nil, in which case
// mutations are not announced.
func NewStore(emitter events.Emitter, logger *slog.Logger) *Store {
	return &Store{
		items:   make(map[string]*domain.WorkItem),
		order:   make([]string, 0),
		emitter: emitter,
		logger:  logger.With("component", "work_item_store"),
	}
}

// Put inserts a new work item. Returns ErrDuplicateWorkItem if the ID is
// already present.
func (s *Store) Put(ctx context.Context, item *domain.WorkItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s.mu.Lock()
	if _, ok := s.items[item.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateWorkItem, item.ID)
	}
	clone := *item
	s.items[item.ID] = &clone
	s.order = append(s.order, item.ID)
	s.mu.Unlock()

	s.notify(ctx, item.ID, item.Status)
	return nil
}

// Get returns a copy of the work item with the given ID.
func (s *Store) Get(id string) (*domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkItemNotFound, id)
	}
	clone := *item
	return &clone, nil
}

// List returns copies of all work items, in insertion order, for which the
// predicate returns true. A nil predicate matches everything.
func (s *Store) List(predicate func(*domain.WorkItem) bool) []*domain.WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WorkItem, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if predicate == nil || predicate(item) {
			clone := *item
			result = append(result, &clone)
		}
	}
	return result
}

// Update merges the patch into the work item with the given ID. A status
// change that violates the state machine is rejected with
// domain.ErrIllegalTransition and leaves the item untouched. On success the
// change emitter is notified so persistence can arm its debounce timer.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*domain.WorkItem, error) {
	s.mu.Lock()

	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWorkItemNotFound, id)
	}

	if patch.Status != nil {
		if !domain.IsValidStatus(*patch.Status) {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *patch.Status)
		}
		if !domain.CanTransition(item.Status, *patch.Status) {
			from, to := item.Status, *patch.Status
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s → %s for item %s",
				domain.ErrIllegalTransition, from, to, id)
		}
		item.Status = *patch.Status
	}

	if patch.ProgressText != nil {
		item.ProgressText = *patch.ProgressText
	}
	if patch.Stage != nil {
		item.Stage = *patch.Stage
	}
	if patch.ResultPayload != nil {
		item.ResultPayload = *patch.ResultPayload
	}
	if patch.ErrorInfo != nil {
		info := *patch.ErrorInfo
		item.ErrorInfo = &info
	}
	if patch.IncrementRetry {
		item.RetryCount++
	}

	// Result iff completed, error info iff errored. Bulk fields attached to
	// a non-matching status are dropped rather than rejected so cancel and
	// reset paths stay simple.
	if item.Status != domain.StatusCompleted {
		item.ResultPayload = ""
	}
	if item.Status != domain.StatusError {
		item.ErrorInfo = nil
	}

	item.UpdatedAt = time.Now().UTC()
	clone := *item
	s.mu.Unlock()

	s.notify(ctx, clone.ID, clone.Status)
	return &clone, nil
}

// Len returns the number of stored work items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Seed replaces the store contents with the items of a loaded snapshot.
// Intended for process startup only; no change events are emitted.
func (s *Store) Seed(items []*domain.WorkItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*domain.WorkItem, len(items))
	s.order = make([]string, 0, len(items))
	for _, item := range items {
		if item == nil || item.ID == "" {
			continue
		}
		clone := *item
		s.items[item.ID] = &clone
		s.order = append(s.order, item.ID)
	}
	s.logger.Info("seeded work item store from snapshot", "item_count", len(s.order))
}

func (s *Store) notify(ctx context.Context, id string, status domain.WorkItemStatus) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitEvent(ctx, events.NewItemChangeEvent(id, status)); err != nil {
		s.logger.Warn("change event handler failed", "item_id", id, "error", err)
	}
}
