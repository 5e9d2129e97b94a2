package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestJobState_IsTerminal tests terminal state detection
func TestJobState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    JobState
		terminal bool
	}{
		{JobPending, false},
		{JobProcessing, false},
		{JobCompleted, true},
		{JobFailed, true},
		{JobCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}
}

// TestJobState_CanTransition tests the job state machine
func TestJobState_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    JobState
		to      JobState
		allowed bool
	}{
		{"pending to processing", JobPending, JobProcessing, true},
		{"pending to failed", JobPending, JobFailed, true},
		{"pending to cancelled", JobPending, JobCancelled, true},
		{"pending to completed", JobPending, JobCompleted, false},
		{"processing to completed", JobProcessing, JobCompleted, true},
		{"processing to failed", JobProcessing, JobFailed, true},
		{"processing to cancelled", JobProcessing, JobCancelled, true},
		{"processing back to pending", JobProcessing, JobPending, false},
		{"completed is final", JobCompleted, JobProcessing, false},
		{"failed is final", JobFailed, JobPending, false},
		{"cancelled is final", JobCancelled, JobCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

// TestJobState_NoTerminalEscape tests that no terminal state can transition anywhere
func TestJobState_NoTerminalEscape(t *testing.T) {
	terminals := []JobState{JobCompleted, JobFailed, JobCancelled}
	all := []JobState{JobPending, JobProcessing, JobCompleted, JobFailed, JobCancelled}

	for _, from := range terminals {
		for _, to := range all {
			assert.False(t, from.CanTransition(to), "%s -> %s should be rejected", from, to)
		}
	}
}
