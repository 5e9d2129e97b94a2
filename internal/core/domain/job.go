package domain

import "time"

// JobState is the lifecycle state of an ingestion job.
type JobState string

// Job lifecycle states.
const (
	// JobPending means the job has been accepted but not yet started.
	JobPending JobState = "PENDING"

	// JobProcessing means the pipeline is executing.
	JobProcessing JobState = "PROCESSING"

	// JobCompleted means all chunks were embedded and stored.
	JobCompleted JobState = "COMPLETED"

	// JobFailed means a pipeline stage returned an error.
	JobFailed JobState = "FAILED"

	// JobCancelled means a cancellation request was honoured.
	JobCancelled JobState = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving to the given state is legal.
// Transitions only ever move forward; terminal states are final.
func (s JobState) CanTransition(to JobState) bool {
	switch s {
	case JobPending:
		return to == JobProcessing || to == JobFailed || to == JobCancelled
	case JobProcessing:
		return to.IsTerminal()
	default:
		return false
	}
}

// String returns the string representation.
func (s JobState) String() string {
	return string(s)
}

// Ingestion progress checkpoints, reported after each pipeline stage.
const (
	ProgressChunked  = 20
	ProgressEmbedded = 40
	ProgressAttached = 80
	ProgressStored   = 100
)

// JobStatus is the externally observable snapshot of an ingestion job.
type JobStatus struct {
	// JobID is the unique identifier for the job.
	JobID string

	// State is the current lifecycle state.
	State JobState

	// Progress is the pipeline completion percentage (0-100).
	Progress int

	// DocumentID is the document being ingested, once known.
	DocumentID string

	// Error holds the failure message when State is JobFailed.
	Error string

	// StartedAt is when the job was accepted.
	StartedAt time.Time

	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time
}

// JobStats summarises the job tracker for monitoring endpoints.
type JobStats struct {
	// Pending is the number of jobs waiting for a worker.
	Pending int

	// Processing is the number of jobs currently executing.
	Processing int

	// Completed is the number of completed jobs still within retention.
	Completed int

	// Failed is the number of failed jobs still within retention.
	Failed int

	// Cancelled is the number of cancelled jobs still within retention.
	Cancelled int
}
