// Package durable persists orchestration snapshots under a hard storage
// quota. Writes degrade through fidelity tiers instead of failing outright:
// full snapshot first, then truncated bulk fields, then identity and status
// only. Quota faults are absorbed here and never surface to orchestration
// callers.
package durable

import (
	"context"
	"errors"
)

// Common errors for the durable layer.
var (
	// ErrQuotaExceeded is raised by a KV backend when a write would exceed
	// its storage quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KV is the quota-limited key→string store snapshots are written to. A Set
// may fail with ErrQuotaExceeded; there are no multi-key transactions.
type KV interface {
	// Get returns the value for key. The boolean reports presence.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value for key, returning ErrQuotaExceeded (possibly
	// wrapped) when the backend's quota would be exceeded.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
