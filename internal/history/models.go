package history

import "time"

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one ledger row.
type Run struct {
	ID           string    `json:"id"`
	SourcePath   string    `json:"source_path"`
	OutputPath   string    `json:"output_path,omitempty"`
	Mode         string    `json:"mode"`
	Status       Status    `json:"status"`
	FlaggedCount int       `json:"flagged_count"`
	SevereCount  int       `json:"severe_count"`
	Chunks       int       `json:"chunks"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Elapsed returns the wall-clock duration of the run.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
