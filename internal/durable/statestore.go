package durable

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

// StateKey is the key the orchestration snapshot is stored under.
const StateKey = "inkwell.state"

// TierNone reports that no tier could be written.
const TierNone domain.SnapshotTier = -1

// Tier-1 degradation budgets.
const (
	truncationMarker   = "…[truncated]"
	maxPayloadChars    = 20000
	maxListElements    = 50
	maxMinimalProgress = 200
)

// defaultQuietPeriod is the debounce window: bursts of work item mutations
// inside one quiet period produce a single write.
const defaultQuietPeriod = 900 * time.Millisecond

// SnapshotProvider supplies the current snapshot when the debounce timer
// fires. The orchestrator injects this so the store owns no live objects.
type SnapshotProvider func() *domain.Snapshot

// StateStore is the tiered, quota-aware persistence layer for orchestration
// snapshots. Save degrades through fidelity tiers rather than failing;
// writes are debounced and serialized, with an in-flight write coalescing
// later requests.
type StateStore struct {
	kv         KV
	byteBudget int
	quiet      time.Duration
	provider   SnapshotProvider
	logger     *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	saving  bool
	pending bool

	// writeMu serializes snapshot writes: a flush arriving while a
	// debounced write is inside kv.Set waits for it and lands afterwards,
	// so the freshest snapshot is always the one persisted last.
	writeMu sync.Mutex
}

// Option customizes a StateStore.
type Option func(*StateStore)

// WithQuietPeriod overrides the debounce quiet period.
func WithQuietPeriod(d time.Duration) Option {
	return func(s *StateStore) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// NewStateStore creates a StateStore over the given KV. byteBudget caps the
// tier-0 serialized size; non-positive means no serialization budget (quota
// faults from the KV still trigger fallback).
func NewStateStore(kv KV, byteBudget int, provider SnapshotProvider, logger *slog.Logger, opts ...Option) *StateStore {
	s := &StateStore{
		kv:         kv,
		byteBudget: byteBudget,
		quiet:      defaultQuietPeriod,
		provider:   provider,
		logger:     logger.With("component", "durable_state_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arm starts (or restarts) the debounce timer. Call on every meaningful
// mutation; the snapshot is fetched from the provider and written once the
// quiet period elapses without further mutations.
func (s *StateStore) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.quiet, s.writeDebounced)
}

// writeDebounced performs the armed write, coalescing requests that arrive
// while a write is in flight into a single follow-up write.
func (s *StateStore) writeDebounced() {
	s.mu.Lock()
	if s.saving {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.saving = true
	s.mu.Unlock()

	if s.provider != nil {
		s.Save(context.Background(), s.provider())
	}

	s.mu.Lock()
	s.saving = false
	rearm := s.pending
	s.pending = false
	s.mu.Unlock()

	if rearm {
		s.writeDebounced()
	}
}

// Flush cancels any armed timer and writes the current snapshot
// synchronously. Intended for shutdown.
func (s *StateStore) Flush(ctx context.Context) domain.SnapshotTier {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if s.provider == nil {
		return TierNone
	}
	return s.Save(ctx, s.provider())
}

// Save writes the snapshot at the highest fidelity tier that fits:
// tier 0 (full), tier 1 (bulk text truncated, lists capped), tier 2
// (identity, status and short progress only). Quota faults are absorbed —
// Save never propagates an error to the caller. The tier actually written
// is returned, or TierNone when even the minimal tier could not be stored.
func (s *StateStore) Save(ctx context.Context, snap *domain.Snapshot) domain.SnapshotTier {
	if snap == nil {
		return TierNone
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, tier := range []domain.SnapshotTier{domain.TierFull, domain.TierCompressed, domain.TierMinimal} {
		candidate := degrade(snap, tier)
		candidate.SavedAt = time.Now().UTC()

		payload, err := json.Marshal(candidate)
		if err != nil {
			s.logger.Error("failed to serialize snapshot", "tier", tier, "error", err)
			continue
		}

		// The serialization budget only gates the full tier; degraded tiers
		// are always attempted and let the backend's quota decide.
		if tier == domain.TierFull && s.byteBudget > 0 && len(payload) > s.byteBudget {
			s.logger.Info("snapshot over byte budget, degrading",
				"size", len(payload), "budget", s.byteBudget)
			continue
		}

		if err := s.kv.Set(ctx, StateKey, string(payload)); err != nil {
			if errors.Is(err, ErrQuotaExceeded) {
				s.logger.Warn("snapshot write over storage quota, degrading",
					"tier", tier, "size", len(payload))
				continue
			}
			s.logger.Error("snapshot write failed", "tier", tier, "error", err)
			continue
		}

		s.logger.Debug("snapshot saved",
			"tier", tier, "size", len(payload), "item_count", len(candidate.Items))
		return tier
	}

	s.logger.Error("snapshot could not be saved at any tier")
	return TierNone
}

// Load returns the persisted snapshot, or nil when absent or unparseable.
// Corrupt data is discarded, never surfaced as an error.
func (s *StateStore) Load(ctx context.Context) *domain.Snapshot {
	value, ok, err := s.kv.Get(ctx, StateKey)
	if err != nil {
		s.logger.Error("failed to read persisted snapshot", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		s.logger.Warn("discarding corrupt persisted snapshot", "error", err)
		return nil
	}

	s.logger.Info("loaded persisted snapshot",
		"tier", snap.Tier, "item_count", len(snap.Items), "saved_at", snap.SavedAt)
	return &snap
}

// degrade produces the snapshot projection for the given tier. Identity and
// status fields survive every tier; only bulk content is lost.
func degrade(snap *domain.Snapshot, tier domain.SnapshotTier) *domain.Snapshot {
	out := &domain.Snapshot{
		Tier:        tier,
		SelectedIDs: snap.SelectedIDs,
		Queue:       snap.Queue,
		Jobs:        snap.Jobs,
		Items:       make([]*domain.WorkItem, 0, len(snap.Items)),
	}

	for _, item := range snap.Items {
		if item == nil {
			continue
		}
		clone := *item

		switch tier {
		case domain.TierCompressed:
			clone.ResultPayload = truncate(clone.ResultPayload, maxPayloadChars)
			if len(clone.Input.Keywords) > maxListElements {
				clone.Input.Keywords = clone.Input.Keywords[:maxListElements]
			}
			if clone.ErrorInfo != nil {
				info := *clone.ErrorInfo
				info.Message = truncate(info.Message, maxPayloadChars)
				clone.ErrorInfo = &info
			}

		case domain.TierMinimal:
			clone.ResultPayload = ""
			clone.Input.Keywords = nil
			clone.Input.Extra = nil
			clone.ProgressText = truncate(clone.ProgressText, maxMinimalProgress)
			if clone.ErrorInfo != nil {
				info := *clone.ErrorInfo
				info.Message = truncate(info.Message, maxMinimalProgress)
				clone.ErrorInfo = &info
			}
		}

		out.Items = append(out.Items, &clone)
	}

	return out
}

// truncate caps s at limit runes, appending the truncation marker when
// anything was cut.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncationMarker
}
