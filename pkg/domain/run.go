package domain

import "time"

// RunStatus defines the settlement state of a run.
type RunStatus string

const (
	RunPending  RunStatus = "pending"
	RunResolved RunStatus = "resolved"
	RunRejected RunStatus = "rejected"
)

// RunRecord is the persisted snapshot of a run.
type RunRecord struct {
	ID         string    `json:"id"`
	Pipeline   string    `json:"pipeline,omitempty"`
	Status     RunStatus `json:"status"`
	Input      any       `json:"input,omitempty"`
	Result     any       `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Settled reports whether the run has left the pending state.
func (r *RunRecord) Settled() bool {
	return r.Status == RunResolved || r.Status == RunRejected
}
