// Package poller drives one work item from submission to a terminal state
// against the external pipeline. It owns the per-job state machine,
// transient-fault tolerance, the wall-clock deadline, and result extraction;
// terminal outcomes are handed back to the orchestrator for finalization.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/pipeline"
	"github.com/inkwell-ai/inkwell/internal/workstore"
)

// State is the poller's position in its state machine.
type State string

// Poller states.
const (
	StateSubmitted  State = "submitted"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
	StateCancelled  State = "cancelled"
)

// EmptyResultPlaceholder is surfaced when a job completes with zero-length
// extracted content. Completed-but-empty is terminal, not an error.
const EmptyResultPlaceholder = "(pipeline returned no content)"

// Outcome is the terminal result of driving one work item.
type Outcome struct {
	State        State
	JobID        string
	Result       string
	ErrorKind    domain.ErrorKind
	ErrorMessage string
	CanResume    bool
}

// Config holds the tunables of the poll loop.
type Config struct {
	// PollInterval is the fixed sleep between status polls.
	PollInterval time.Duration

	// JobTimeout is the wall-clock ceiling measured from job submission
	// time, independent of poll cadence.
	JobTimeout time.Duration

	// MaxTransientStreak is the number of consecutive transient poll faults
	// tolerated before the job is failed with the last transport error.
	MaxTransientStreak int

	// NotFoundGracePolls is the number of initial polls during which a 404
	// is tolerated penalty-free while the backend warms up.
	NotFoundGracePolls int
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:       time.Second,
		JobTimeout:         15 * time.Minute,
		MaxTransientStreak: 8,
		NotFoundGracePolls: 5,
	}
}

// Poller drives a single work item to a terminal state. Progress is
// streamed into the work item store as it arrives; the terminal Outcome is
// returned to the caller.
type Poller struct {
	client   pipeline.Client
	store    *workstore.Store
	registry *workstore.Registry
	clock    Clock
	config   Config
	logger   *slog.Logger
}

// New creates a Poller. A nil clock defaults to the system clock.
func New(
	client pipeline.Client,
	store *workstore.Store,
	registry *workstore.Registry,
	clock Clock,
	config Config,
	logger *slog.Logger,
) *Poller {
	if clock == nil {
		clock = NewClock()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 15 * time.Minute
	}
	return &Poller{
		client:   client,
		store:    store,
		registry: registry,
		clock:    clock,
		config:   config,
		logger:   logger.With("component", "job_poller"),
	}
}

// Run submits the work item to the pipeline and polls the issued job to a
// terminal state. A start-job failure surfaces immediately as a failed
// outcome; no polling is attempted.
func (p *Poller) Run(ctx context.Context, item *domain.WorkItem) Outcome {
	log := p.logger.With("item_id", item.ID)

	resp, err := p.client.StartJob(ctx, pipeline.StartRequest{
		WorkItemID: item.ID,
		Input:      item.Input,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{State: StateCancelled}
		}
		log.Error("start-job call failed", "error", err)
		return Outcome{
			State:        StateFailed,
			ErrorKind:    domain.ErrorKindStart,
			ErrorMessage: fmt.Sprintf("failed to start generation job: %v", err),
			CanResume:    true,
		}
	}

	if err := p.registry.Register(item.ID, resp.JobID); err != nil {
		// An existing live handle means another poller owns this item.
		log.Error("failed to register job handle", "job_id", resp.JobID, "error", err)
		return Outcome{
			State:        StateFailed,
			JobID:        resp.JobID,
			ErrorKind:    domain.ErrorKindStart,
			ErrorMessage: err.Error(),
			CanResume:    false,
		}
	}

	log.Info("job submitted", "job_id", resp.JobID, "initial_status", resp.InitialStatus)
	return p.poll(ctx, item.ID, resp.JobID, p.clock.Now())
}

// Resume attaches to a job already running on the backend and polls it to a
// terminal state. The start-job call is never repeated; the timeout ceiling
// still counts from the original submission time.
func (p *Poller) Resume(ctx context.Context, itemID, jobID string, startedAt time.Time) Outcome {
	p.logger.Info("resuming poll of existing job",
		"item_id", itemID, "job_id", jobID, "started_at", startedAt)
	return p.poll(ctx, itemID, jobID, startedAt)
}

// poll is the InProgress loop: status call, advisory progress update, fixed
// sleep, until an explicit terminal status, the deadline, a fault streak
// overflow, or cancellation.
func (p *Poller) poll(ctx context.Context, itemID, jobID string, startedAt time.Time) Outcome {
	log := p.logger.With("item_id", itemID, "job_id", jobID)
	deadline := startedAt.Add(p.config.JobTimeout)

	transientStreak := 0
	pollCount := 0
	var lastTransientErr error

	for {
		if !p.clock.Now().Before(deadline) {
			log.Warn("job exceeded wall-clock ceiling", "timeout", p.config.JobTimeout)
			return Outcome{
				State:     StateTimedOut,
				JobID:     jobID,
				ErrorKind: domain.ErrorKindTimeout,
				ErrorMessage: fmt.Sprintf(
					"generation did not finish within %s", p.config.JobTimeout),
				CanResume: true,
			}
		}

		resp, err := p.client.JobStatus(ctx, jobID)
		pollCount++

		if err != nil {
			if ctx.Err() != nil {
				return Outcome{State: StateCancelled, JobID: jobID}
			}

			if !p.tolerable(err, pollCount) {
				log.Error("non-retryable poll fault", "error", err)
				return Outcome{
					State:        StateFailed,
					JobID:        jobID,
					ErrorKind:    domain.ErrorKindPipeline,
					ErrorMessage: err.Error(),
					CanResume:    false,
				}
			}

			transientStreak++
			lastTransientErr = err
			if transientStreak > p.config.MaxTransientStreak {
				log.Error("transient fault streak exhausted",
					"streak", transientStreak, "error", lastTransientErr)
				return Outcome{
					State:     StateFailed,
					JobID:     jobID,
					ErrorKind: domain.ErrorKindPipeline,
					ErrorMessage: fmt.Sprintf(
						"giving up after %d consecutive transient faults: %v",
						transientStreak, lastTransientErr),
					CanResume: true,
				}
			}

			log.Debug("transient poll fault, retrying in place",
				"streak", transientStreak, "error", err)
		} else {
			transientStreak = 0
			lastTransientErr = nil

			switch resp.Status {
			case pipeline.JobStateCompleted:
				return p.completed(itemID, jobID, resp)

			case pipeline.JobStateError, pipeline.JobStateFailed:
				msg := resp.ErrorMessage
				if msg == "" {
					msg = "pipeline reported an unspecified error"
				}
				log.Warn("pipeline reported failure", "message", msg)
				return Outcome{
					State:        StateFailed,
					JobID:        jobID,
					ErrorKind:    domain.ErrorKindPipeline,
					ErrorMessage: msg,
					CanResume:    false,
				}

			default:
				// Submitted or in progress. Percent and message text are
				// advisory only; a response claiming 100% "complete" with a
				// non-terminal status must keep us polling, because the
				// result payload may not be attached yet.
				p.streamProgress(ctx, itemID, resp)
			}
		}

		if err := p.clock.Sleep(ctx, p.config.PollInterval); err != nil {
			return Outcome{State: StateCancelled, JobID: jobID}
		}
	}
}

// tolerable reports whether a poll fault may be retried in place: any
// classified-retryable fault, plus a 404 within the startup grace window.
func (p *Poller) tolerable(err error, pollCount int) bool {
	if pipeline.IsRetryableFault(err) {
		return true
	}
	if pipeline.IsNotFoundFault(err) && pollCount <= p.config.NotFoundGracePolls {
		return true
	}
	// Raw transport errors that escaped classification are transient too.
	var fault *pipeline.Fault
	if !errors.As(err, &fault) {
		return true
	}
	return false
}

// streamProgress writes advisory progress onto the work item. Failures here
// are logged and swallowed; progress text is best-effort.
func (p *Poller) streamProgress(ctx context.Context, itemID string, resp pipeline.StatusResponse) {
	progress := resp.ProgressMessage
	if progress == "" && resp.ProgressPercent > 0 {
		progress = fmt.Sprintf("%d%%", resp.ProgressPercent)
	}

	patch := workstore.Patch{}
	if progress != "" {
		patch.ProgressText = &progress
	}
	if resp.Stage != "" {
		patch.Stage = &resp.Stage
	}
	if patch.ProgressText == nil && patch.Stage == nil {
		return
	}

	if _, err := p.store.Update(ctx, itemID, patch); err != nil {
		p.logger.Warn("failed to stream progress", "item_id", itemID, "error", err)
	}
}

// completed builds the terminal outcome for an explicitly completed job,
// probing the result payload and substituting the placeholder when the
// extracted content is empty.
func (p *Poller) completed(itemID, jobID string, resp pipeline.StatusResponse) Outcome {
	content, ok := pipeline.ExtractResult(resp.Result)
	if !ok || content == "" {
		p.logger.Warn("job completed with empty content",
			"item_id", itemID, "job_id", jobID)
		content = EmptyResultPlaceholder
	}

	return Outcome{
		State:  StateCompleted,
		JobID:  jobID,
		Result: content,
	}
}
