package jobs

import (
	"time"

	"gorm.io/datatypes"
)

// JobState represents the lifecycle state of a background job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCanceled  JobState = "canceled"
)

// Job is the GORM model for a background job. Kind selects the handler
// that runs it.
type Job struct {
	ID             string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	Kind           string         `gorm:"column:kind;size:64;index:idx_job_kind_state,priority:1;not null"`
	Payload        datatypes.JSON `gorm:"column:payload"`
	RequestedBy    string         `gorm:"column:requested_by;not null"`
	RequestedAt    time.Time      `gorm:"column:requested_at;index;not null"`
	State          JobState       `gorm:"column:state;index:idx_job_kind_state,priority:2;index:idx_job_state;not null;default:queued"`
	Message        string         `gorm:"column:message"`
	StartedAt      *time.Time     `gorm:"column:started_at"`
	FinishedAt     *time.Time     `gorm:"column:finished_at"`
	AttemptCount   int            `gorm:"column:attempt_count;default:0"`
	LastError      string         `gorm:"column:last_error"`
	IdempotencyKey string         `gorm:"column:idempotency_key;uniqueIndex:idx_job_idemp_key"`
	Affected       int            `gorm:"column:affected"`
	DurationMs     int64          `gorm:"column:duration_ms"`
}

// TableName returns the GORM table name.
func (Job) TableName() string { return "jobs" }

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	switch j.State {
	case JobStateSucceeded, JobStateFailed, JobStateCanceled:
		return true
	}
	return false
}
