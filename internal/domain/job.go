package domain

import (
	"fmt"
	"time"
)

// JobState enumerates job lifecycle states. States advance in a fixed order;
// failed is reachable from any non-terminal state.
type JobState string

const (
	JobStatePending     JobState = "pending"
	JobStateGenerating  JobState = "generating"
	JobStateDownloading JobState = "downloading"
	JobStateProcessing  JobState = "processing"
	JobStateCompleted   JobState = "completed"
	JobStateFailed      JobState = "failed"
)

// jobStateRank orders the non-failure states for transition checks.
var jobStateRank = map[JobState]int{
	JobStatePending:     0,
	JobStateGenerating:  1,
	JobStateDownloading: 2,
	JobStateProcessing:  3,
	JobStateCompleted:   4,
}

// Terminal reports whether no further transitions leave this state.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Valid reports whether s is a known state value.
func (s JobState) Valid() bool {
	if s == JobStateFailed {
		return true
	}
	_, ok := jobStateRank[s]
	return ok
}

// CanTransition reports whether a job may move from s to next. Failure is
// allowed from any non-terminal state; otherwise states only advance.
func (s JobState) CanTransition(next JobState) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == JobStateFailed {
		return true
	}
	return jobStateRank[next] >= jobStateRank[s]
}

// Job tracks one video generation request through its lifecycle.
type Job struct {
	ID          string    `json:"job_id"`
	ProductName string    `json:"product_name"`
	State       JobState  `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	VideoURL    *string   `json:"video_url,omitempty"`
	Error       *string   `json:"error,omitempty"`
}

// Validate checks the record-level invariants: progress bounds, state validity
// and the mutual exclusion of video_url/error in terminal states.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: job id is required", ErrValidation)
	}
	if j.ProductName == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if !j.State.Valid() {
		return fmt.Errorf("%w: unknown job state %q", ErrValidation, j.State)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("%w: progress %d out of range", ErrValidation, j.Progress)
	}
	if j.State == JobStateCompleted && j.Error != nil {
		return fmt.Errorf("%w: completed job carries an error", ErrValidation)
	}
	if j.State == JobStateFailed && j.Error == nil {
		return fmt.Errorf("%w: failed job has no error", ErrValidation)
	}
	return nil
}
