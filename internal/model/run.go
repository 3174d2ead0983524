package model

import "time"

// RunStatus is the lifecycle state of a discovery run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one discovery/scoring run. A run moves pending -> running and
// terminates in completed or failed; terminal states never transition again.
type Run struct {
	ID          string               `json:"id"`
	Status      RunStatus            `json:"status"`
	Criteria    *AcquisitionCriteria `json:"criteria,omitempty"`
	Query       string               `json:"query,omitempty"`
	MaxResults  int                  `json:"max_results,omitempty"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`

	TotalFound     int `json:"total_found"`
	TotalScored    int `json:"total_scored"`
	TotalQualified int `json:"total_qualified"`
}

// Terminal reports whether the run has reached a terminal state.
func (r *Run) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}
