package workstore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

// Registry is the persisted mapping from work item id to the job id issued
// by the external pipeline. It is owned by one orchestrator instance and
// constructor-injected, never a process-wide singleton, so multiple
// orchestrators (tests, multiple deployments) do not collide.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]domain.JobHandle
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handles: make(map[string]domain.JobHandle),
		logger:  logger.With("component", "job_registry"),
	}
}

// Register records the job handle for a work item. Returns
// domain.ErrDuplicateJobHandle if the item already has a live handle.
func (r *Registry) Register(workItemID, externalJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.handles[workItemID]; ok {
		return fmt.Errorf("%w: item %s already bound to job %s",
			domain.ErrDuplicateJobHandle, workItemID, existing.ExternalJobID)
	}

	r.handles[workItemID] = domain.JobHandle{
		WorkItemID:    workItemID,
		ExternalJobID: externalJobID,
		StartedAt:     time.Now().UTC(),
	}
	return nil
}

// Unregister removes the handle for a work item. Unknown ids are a no-op.
func (r *Registry) Unregister(workItemID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, workItemID)
}

// Lookup returns the live handle for a work item, if any.
func (r *Registry) Lookup(workItemID string) (domain.JobHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.handles[workItemID]
	return handle, ok
}

// All returns a copy of every live handle, keyed by work item id.
func (r *Registry) All() map[string]domain.JobHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.JobHandle, len(r.handles))
	for id, handle := range r.handles {
		out[id] = handle
	}
	return out
}

// Seed replaces the registry contents from a loaded snapshot, keeping only
// entries whose work item still exists in the store and is still running.
// Stale entries are discarded silently (debug-logged only).
func (r *Registry) Seed(jobs map[string]domain.JobHandle, store *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handles = make(map[string]domain.JobHandle, len(jobs))
	for id, handle := range jobs {
		item, err := store.Get(id)
		if err != nil {
			r.logger.Debug("discarding registry entry for missing item", "item_id", id)
			continue
		}
		if item.Status != domain.StatusRunning {
			r.logger.Debug("discarding registry entry for non-running item",
				"item_id", id, "status", item.Status)
			continue
		}
		handle.WorkItemID = id
		r.handles[id] = handle
	}
	r.logger.Info("seeded job registry from snapshot", "handle_count", len(r.handles))
}
