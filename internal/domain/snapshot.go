package domain

import "time"

// JobHandle binds a work item to the job id issued by the external pipeline.
// At most one live handle exists per work item.
type JobHandle struct {
	WorkItemID    string    `json:"work_item_id"`
	ExternalJobID string    `json:"external_job_id"`
	StartedAt     time.Time `json:"started_at"`
}

// SnapshotTier identifies the fidelity level of a persisted snapshot.
type SnapshotTier int

// Snapshot fidelity tiers, highest fidelity first.
const (
	// TierFull keeps every field of every item.
	TierFull SnapshotTier = 0
	// TierCompressed truncates bulk text fields and caps list fields.
	TierCompressed SnapshotTier = 1
	// TierMinimal keeps only identity, status and short progress strings.
	TierMinimal SnapshotTier = 2
)

// Snapshot is the serializable projection of orchestration state: all work
// items, the selected-id set, the remaining queue, and the job registry.
// It is the unit of persistence for the durable state store.
type Snapshot struct {
	Tier        SnapshotTier         `json:"tier"`
	SavedAt     time.Time            `json:"saved_at"`
	Items       []*WorkItem          `json:"items"`
	SelectedIDs []string             `json:"selected_ids,omitempty"`
	Queue       []string             `json:"queue,omitempty"`
	Jobs        map[string]JobHandle `json:"jobs,omitempty"`
}
