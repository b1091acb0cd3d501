package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/pipeline"
	"github.com/inkwell-ai/inkwell/internal/poller"
	"github.com/inkwell-ai/inkwell/internal/workstore"
)

// Mode selects how a submitted batch is executed.
type Mode string

// Execution modes.
const (
	// ModeBounded runs up to the configured concurrency limit of jobs at
	// once, launching the next queued id as each poller finishes.
	ModeBounded Mode = "bounded"
	// ModeSequential runs one job at a time in strict input order and is
	// cancelable between and during items.
	ModeSequential Mode = "sequential"
)

// Common orchestrator errors.
var (
	// ErrBatchActive is returned when a sequential run is requested while
	// another sequential run is still in flight.
	ErrBatchActive = errors.New("a sequential batch is already active")

	// ErrUnknownMode is returned for an unrecognized execution mode.
	ErrUnknownMode = errors.New("unknown execution mode")
)

// Config holds orchestrator tunables.
type Config struct {
	// MaxConcurrency bounds the number of unresolved pollers in a bounded
	// run and during startup resumption.
	MaxConcurrency int

	// Poller configures every job poller the orchestrator spawns.
	Poller poller.Config
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 3,
		Poller:         poller.DefaultConfig(),
	}
}

// Orchestrator pulls ids from caller-supplied batches, drives each through a
// job poller, and finalizes the work item when the poller reaches a terminal
// state. One orchestrator owns one registry and one store; nothing here is a
// process-wide singleton.
type Orchestrator struct {
	store    *workstore.Store
	registry *workstore.Registry
	client   pipeline.Client
	clock    poller.Clock
	config   Config
	logger   *slog.Logger

	mu        sync.Mutex
	seqBatch  *batch             // active sequential batch, nil when idle
	seqCancel context.CancelFunc // aborts the in-flight poll of the sequential run
	selected  map[string]struct{}
	queue     []string // untouched tail of the last sequential run
}

// New creates an Orchestrator. A nil clock defaults to the system clock.
func New(
	store *workstore.Store,
	registry *workstore.Registry,
	client pipeline.Client,
	clock poller.Clock,
	config Config,
	logger *slog.Logger,
) *Orchestrator {
	if clock == nil {
		clock = poller.NewClock()
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	return &Orchestrator{
		store:    store,
		registry: registry,
		client:   client,
		clock:    clock,
		config:   config,
		logger:   logger.With("component", "orchestrator"),
		selected: make(map[string]struct{}),
	}
}

// RunBounded launches up to maxConcurrency pollers concurrently over the
// given ids; each time one finishes the next queued id is launched
// immediately. Already-completed ids are skipped and duplicates are
// processed once. The call returns when every id has reached a terminal
// outcome. Bounded runs are not cancelable mid-batch.
func (o *Orchestrator) RunBounded(ctx context.Context, ids []string, maxConcurrency int) error {
	if maxConcurrency <= 0 {
		maxConcurrency = o.config.MaxConcurrency
	}
	b := newBatch(ids, maxConcurrency)
	o.logger.Info("starting bounded run",
		"id_count", b.size(), "max_concurrency", maxConcurrency)

	o.enqueue(ctx, b)

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for {
		id, ok := b.next()
		if !ok {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			o.runOne(ctx, id)
		}(id)
	}

	wg.Wait()
	o.logger.Info("bounded run finished", "id_count", b.size())
	return nil
}

// RunSequential processes ids one at a time in input order. Before starting
// each id it checks the batch's cancellation flag. If cancelled while an id
// is in flight, the in-flight poll is abandoned (not the remote job), the
// work item reverts to a resumable state, and the untouched tail of the
// queue — including the interrupted id — is returned so the caller can
// resume later with another RunSequential call. Resuming never re-executes
// an already-completed id.
func (o *Orchestrator) RunSequential(ctx context.Context, ids []string) ([]string, error) {
	b := newBatch(ids, 1)

	seqCtx, cancel := context.WithCancel(ctx)
	if err := o.reserveSequential(b, cancel); err != nil {
		cancel()
		return nil, err
	}
	return o.runSequential(seqCtx, b)
}

// reserveSequential claims the single sequential slot, failing with
// ErrBatchActive when another sequential run holds it. Claiming and checking
// happen under one lock so two concurrent submissions cannot both win.
func (o *Orchestrator) reserveSequential(b *batch, cancel context.CancelFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.seqBatch != nil {
		return ErrBatchActive
	}
	o.seqBatch = b
	o.seqCancel = cancel
	return nil
}

// runSequential drives a reserved sequential batch; the slot is released on
// return.
func (o *Orchestrator) runSequential(ctx context.Context, b *batch) ([]string, error) {
	defer func() {
		o.mu.Lock()
		if o.seqCancel != nil {
			o.seqCancel()
		}
		o.seqBatch = nil
		o.seqCancel = nil
		o.mu.Unlock()
	}()

	o.logger.Info("starting sequential run", "id_count", b.size())
	o.enqueue(ctx, b)

	for {
		if b.isCancelled() {
			remaining := b.remaining()
			o.setQueue(remaining)
			o.logger.Info("sequential run cancelled before next item",
				"remaining", len(remaining))
			return remaining, nil
		}

		id, ok := b.next()
		if !ok {
			break
		}

		outcome, ran := o.runOne(ctx, id)
		if ran && outcome.State == poller.StateCancelled {
			// The interrupted id heads the untouched tail.
			remaining := append([]string{id}, b.remaining()...)
			o.setQueue(remaining)
			o.logger.Info("sequential run cancelled mid-item",
				"interrupted_id", id, "remaining", len(remaining))
			return remaining, nil
		}

		o.setQueue(b.remaining())
	}

	o.setQueue(nil)
	o.logger.Info("sequential run finished", "id_count", b.size())
	return nil, nil
}

// Cancel sets the cancellation flag of the active sequential run and aborts
// its in-flight network operation. Idempotent; has no effect on bounded
// runs or when no sequential run is active.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.seqBatch == nil {
		return
	}
	o.seqBatch.cancel()
	if o.seqCancel != nil {
		o.seqCancel()
	}
	o.logger.Info("cancellation requested for sequential run")
}

// Submit executes ids in the given mode on a background goroutine. The
// sequential remainder, if any, is retained in the snapshot queue.
func (o *Orchestrator) Submit(ctx context.Context, ids []string, mode Mode) error {
	switch mode {
	case ModeBounded:
		go func() {
			if err := o.RunBounded(ctx, ids, o.config.MaxConcurrency); err != nil {
				o.logger.Error("bounded run failed", "error", err)
			}
		}()
		return nil
	case ModeSequential:
		// Claim the slot before returning so two concurrent submissions
		// cannot both be accepted.
		b := newBatch(ids, 1)
		seqCtx, cancel := context.WithCancel(ctx)
		if err := o.reserveSequential(b, cancel); err != nil {
			cancel()
			return err
		}
		go func() {
			if _, err := o.runSequential(seqCtx, b); err != nil {
				o.logger.Error("sequential run failed", "error", err)
			}
		}()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// Resume re-attaches pollers to every registry entry whose work item is
// still running, polling the existing job ids without repeating the
// start-job call. Intended to be called once at process start, after the
// snapshot has been seeded. Blocks until every resumed job is terminal.
func (o *Orchestrator) Resume(ctx context.Context) {
	handles := o.registry.All()
	if len(handles) == 0 {
		return
	}
	o.logger.Info("re-attaching pollers to running jobs", "job_count", len(handles))

	sem := make(chan struct{}, o.config.MaxConcurrency)
	var wg sync.WaitGroup

	for itemID, handle := range handles {
		sem <- struct{}{}
		wg.Add(1)
		go func(itemID string, handle domain.JobHandle) {
			defer wg.Done()
			defer func() { <-sem }()

			p := o.newPoller()
			outcome := p.Resume(ctx, itemID, handle.ExternalJobID, handle.StartedAt)
			o.finalize(itemID, outcome)
		}(itemID, handle)
	}

	wg.Wait()
}

// runOne drives a single id to a terminal outcome. The boolean reports
// whether a poller actually ran (false for skipped ids). An id whose
// registry entry still holds a live job handle is resumed against the
// existing job instead of being re-submitted.
func (o *Orchestrator) runOne(ctx context.Context, id string) (poller.Outcome, bool) {
	item, err := o.store.Get(id)
	if err != nil {
		o.logger.Warn("skipping unknown work item", "item_id", id)
		return poller.Outcome{}, false
	}
	if item.Status == domain.StatusCompleted {
		o.logger.Debug("skipping already-completed item", "item_id", id)
		return poller.Outcome{}, false
	}

	if _, err := o.store.Update(ctx, id, workstore.StatusPatch(domain.StatusRunning)); err != nil {
		o.logger.Error("failed to mark item running", "item_id", id, "error", err)
		return poller.Outcome{}, false
	}

	p := o.newPoller()

	var outcome poller.Outcome
	if handle, ok := o.registry.Lookup(id); ok {
		outcome = p.Resume(ctx, id, handle.ExternalJobID, handle.StartedAt)
	} else {
		outcome = p.Run(ctx, item)
	}

	o.finalize(id, outcome)
	return outcome, true
}

// finalize applies a poller's terminal outcome to the work item and the job
// registry. Cancellation reverts the item to a resumable state and keeps
// the registry entry alive so a later run re-attaches to the remote job.
func (o *Orchestrator) finalize(id string, outcome poller.Outcome) {
	// Finalization must land even when the run context is already
	// cancelled.
	ctx := context.Background()

	switch outcome.State {
	case poller.StateCompleted:
		result := outcome.Result
		status := domain.StatusCompleted
		if _, err := o.store.Update(ctx, id, workstore.Patch{
			Status:        &status,
			ResultPayload: &result,
		}); err != nil {
			o.logger.Error("failed to finalize completed item", "item_id", id, "error", err)
		}
		o.releaseHandle(id, outcome.JobID)

	case poller.StateFailed, poller.StateTimedOut:
		status := domain.StatusError
		if _, err := o.store.Update(ctx, id, workstore.Patch{
			Status: &status,
			ErrorInfo: &domain.ErrorInfo{
				Kind:      outcome.ErrorKind,
				Message:   outcome.ErrorMessage,
				CanResume: outcome.CanResume,
			},
		}); err != nil {
			o.logger.Error("failed to finalize failed item", "item_id", id, "error", err)
		}
		o.releaseHandle(id, outcome.JobID)

	case poller.StateCancelled:
		// Never left running with no attached poller.
		if _, err := o.store.Update(ctx, id, workstore.StatusPatch(domain.StatusQueued)); err != nil {
			o.logger.Error("failed to revert cancelled item", "item_id", id, "error", err)
		}

	default:
		o.logger.Error("poller returned non-terminal outcome",
			"item_id", id, "state", outcome.State)
	}
}

// releaseHandle removes the item's job handle, but only when it matches
// the job the outcome came from: a failed duplicate registration must not
// wipe the live handle owned by another poller.
func (o *Orchestrator) releaseHandle(id, jobID string) {
	if handle, ok := o.registry.Lookup(id); ok && handle.ExternalJobID == jobID {
		o.registry.Unregister(id)
	}
}

// newPoller builds a poller wired to this orchestrator's collaborators.
func (o *Orchestrator) newPoller() *poller.Poller {
	return poller.New(o.client, o.store, o.registry, o.clock, o.config.Poller, o.logger)
}

// enqueue marks every non-terminal id of the batch as queued.
func (o *Orchestrator) enqueue(ctx context.Context, b *batch) {
	for _, id := range b.remaining() {
		item, err := o.store.Get(id)
		if err != nil || item.Status.IsTerminal() || item.Status == domain.StatusQueued {
			continue
		}
		if _, err := o.store.Update(ctx, id, workstore.StatusPatch(domain.StatusQueued)); err != nil {
			o.logger.Warn("failed to enqueue item", "item_id", id, "error", err)
		}
	}
}

// SetSelected replaces the selected-id set carried in the snapshot.
func (o *Orchestrator) SetSelected(ids []string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		o.selected[id] = struct{}{}
	}
}

// setQueue records the untouched tail of the active sequential run.
func (o *Orchestrator) setQueue(ids []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = ids
}

// Snapshot builds the serializable projection of current orchestration
// state: all work items, the selected-id set, the remaining queue, and the
// job registry.
func (o *Orchestrator) Snapshot() *domain.Snapshot {
	o.mu.Lock()
	selected := make([]string, 0, len(o.selected))
	for id := range o.selected {
		selected = append(selected, id)
	}
	queue := make([]string, len(o.queue))
	copy(queue, o.queue)
	o.mu.Unlock()

	return &domain.Snapshot{
		Tier:        domain.TierFull,
		Items:       o.store.List(nil),
		SelectedIDs: selected,
		Queue:       queue,
		Jobs:        o.registry.All(),
	}
}

// SeedFromSnapshot restores orchestration state from a loaded snapshot:
// items into the store, live handles into the registry (stale entries
// discarded), and the persisted queue and selection.
func (o *Orchestrator) SeedFromSnapshot(snap *domain.Snapshot) {
	if snap == nil {
		return
	}

	o.store.Seed(snap.Items)
	o.registry.Seed(snap.Jobs, o.store)

	o.mu.Lock()
	o.queue = append([]string(nil), snap.Queue...)
	o.selected = make(map[string]struct{}, len(snap.SelectedIDs))
	for _, id := range snap.SelectedIDs {
		o.selected[id] = struct{}{}
	}
	o.mu.Unlock()
}
