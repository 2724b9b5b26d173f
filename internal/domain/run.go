package domain

import "time"

// RunStatus represents the status of a scheduled fetch run.
// Values include RunStatusPending, RunStatusRunning, RunStatusRetrying, RunStatusSucceeded, and RunStatusFailed.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusRetrying  RunStatus = "retrying"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// FetchRun represents one scheduled fetch job and its attempt history.
type FetchRun struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Provider    string     `gorm:"type:text;not null;index" json:"provider"`
	Mode        FetchMode  `gorm:"type:text;not null" json:"mode"`
	Status      RunStatus  `gorm:"type:text;default:pending;index" json:"status"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastOutcome Outcome    `gorm:"type:text" json:"last_outcome,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	ErrorLog    string     `json:"error_log,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for FetchRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (FetchRun) TableName() string {
	return "fetch_runs"
}

// Done reports whether the run reached a terminal status.
func (r *FetchRun) Done() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}
