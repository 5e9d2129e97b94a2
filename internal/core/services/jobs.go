package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
	"github.com/custodia-labs/libris/internal/logger"
)

// Ensure JobTracker implements the interface.
var _ driving.JobService = (*JobTracker)(nil)

// DefaultJobRetention is how long terminal jobs are kept before the
// sweep removes them.
const DefaultJobRetention = time.Hour

// sweepInterval is how often the retention sweep runs.
const sweepInterval = time.Minute

// trackedJob is the tracker's internal record for one job.
type trackedJob struct {
	status domain.JobStatus
	cancel context.CancelFunc
}

// JobTracker tracks ingestion jobs in memory. Jobs move through the
// lifecycle in domain.JobState; terminal jobs are retained for a window
// so callers can poll the outcome, then swept.
type JobTracker struct {
	mu        sync.Mutex
	jobs      map[string]*trackedJob
	retention time.Duration
	now       func() time.Time
}

// NewJobTracker creates a job tracker. A non-positive retention uses
// DefaultJobRetention.
func NewJobTracker(retention time.Duration) *JobTracker {
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return &JobTracker{
		jobs:      make(map[string]*trackedJob),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a new pending job and returns its ID.
func (t *JobTracker) Create() string {
	jobID := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs[jobID] = &trackedJob{
		status: domain.JobStatus{
			JobID:     jobID,
			State:     domain.JobPending,
			StartedAt: t.now().UTC(),
		},
	}
	return jobID
}

// Start transitions a job to processing and stores its cancel function.
// Returns false if the job was cancelled before a worker picked it up.
func (t *JobTracker) Start(jobID string, cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || !job.status.State.CanTransition(domain.JobProcessing) {
		return false
	}
	job.status.State = domain.JobProcessing
	job.cancel = cancel
	return true
}

// SetProgress records a pipeline checkpoint.
func (t *JobTracker) SetProgress(jobID string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.jobs[jobID]; ok && !job.status.State.IsTerminal() {
		job.status.Progress = progress
	}
}

// SetDocumentID records the document a job is ingesting.
func (t *JobTracker) SetDocumentID(jobID, documentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.jobs[jobID]; ok {
		job.status.DocumentID = documentID
	}
}

// Complete marks a job as successfully finished.
func (t *JobTracker) Complete(jobID string) {
	t.finish(jobID, domain.JobCompleted, "")
}

// Fail marks a job as failed with the given cause.
func (t *JobTracker) Fail(jobID string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	t.finish(jobID, domain.JobFailed, msg)
}

// MarkCancelled marks a job as cancelled.
func (t *JobTracker) MarkCancelled(jobID string) {
	t.finish(jobID, domain.JobCancelled, "")
}

// finish applies a terminal transition. Illegal transitions are ignored
// so a worker finishing after cancellation cannot overwrite the state.
func (t *JobTracker) finish(jobID string, state domain.JobState, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || !job.status.State.CanTransition(state) {
		return
	}

	job.status.State = state
	job.status.Error = errMsg
	if state == domain.JobCompleted {
		job.status.Progress = domain.ProgressStored
	}
	completed := t.now().UTC()
	job.status.CompletedAt = &completed
	job.cancel = nil
}

// GetJobStatus returns a snapshot of one job.
func (t *JobTracker) GetJobStatus(_ context.Context, jobID string) (*domain.JobStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %q: %w", jobID, domain.ErrNotFound)
	}

	snapshot := job.status
	return &snapshot, nil
}

// CancelJob requests cooperative cancellation of a job.
// Pending jobs are cancelled immediately; processing jobs have their
// context cancelled and the worker records the terminal state.
func (t *JobTracker) CancelJob(_ context.Context, jobID string) error {
	t.mu.Lock()

	job, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("job %q: %w", jobID, domain.ErrNotFound)
	}
	if job.status.State.IsTerminal() {
		t.mu.Unlock()
		return fmt.Errorf("job %q: %w", jobID, domain.ErrJobTerminal)
	}

	if job.status.State == domain.JobPending {
		job.status.State = domain.JobCancelled
		completed := t.now().UTC()
		job.status.CompletedAt = &completed
		t.mu.Unlock()
		logger.Debug("Job %s cancelled while pending", jobID)
		return nil
	}

	cancel := job.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	logger.Debug("Job %s cancellation requested", jobID)
	return nil
}

// GetStats summarises tracked jobs.
func (t *JobTracker) GetStats(_ context.Context) (domain.JobStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stats domain.JobStats
	for _, job := range t.jobs {
		switch job.status.State {
		case domain.JobPending:
			stats.Pending++
		case domain.JobProcessing:
			stats.Processing++
		case domain.JobCompleted:
			stats.Completed++
		case domain.JobFailed:
			stats.Failed++
		case domain.JobCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// Sweep removes terminal jobs whose completion is older than the
// retention window. Returns the number of jobs removed.
func (t *JobTracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.retention)
	removed := 0
	for id, job := range t.jobs {
		if !job.status.State.IsTerminal() {
			continue
		}
		if job.status.CompletedAt != nil && job.status.CompletedAt.Before(cutoff) {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs the retention sweep periodically until the context
// is cancelled.
func (t *JobTracker) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := t.Sweep(); removed > 0 {
					logger.Debug("Job sweep removed %d terminal jobs", removed)
				}
			}
		}
	}()
}
