package orchestrator

import "sync"

// batch is one execution batch: ordered ids, a monotonic cursor, a
// cancellation flag, and the concurrency limit of the run that owns it.
// Once the cancellation flag is set it is never cleared for this batch's
// lifetime.
type batch struct {
	mu        sync.Mutex
	ids       []string
	cursor    int
	limit     int
	cancelled bool
}

// newBatch builds a batch from the given ids, dropping duplicates while
// preserving first-occurrence order.
func newBatch(ids []string, limit int) *batch {
	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return &batch{ids: deduped, limit: limit}
}

// next returns the next id and advances the cursor. The cursor only ever
// moves forward.
func (b *batch) next() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cursor >= len(b.ids) {
		return "", false
	}
	id := b.ids[b.cursor]
	b.cursor++
	return id, true
}

// remaining returns the ids not yet handed out.
func (b *batch) remaining() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	tail := make([]string, len(b.ids)-b.cursor)
	copy(tail, b.ids[b.cursor:])
	return tail
}

// cancel sets the cancellation flag. Idempotent.
func (b *batch) cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = true
}

// isCancelled reports whether the batch has been cancelled.
func (b *batch) isCancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

// size returns the number of ids in the batch after deduplication.
func (b *batch) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ids)
}
