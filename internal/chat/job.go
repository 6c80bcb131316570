package chat

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is an advisory request handed to the worker through the queue.
type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID

	UserID    uint64 `gorm:"not null;index:idx_job_user;index:uniq_job_user_idempo,unique,priority:1"`
	SessionID string `gorm:"size:26;index;not null"`

	Query string `gorm:"type:text;not null"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_job_user_idempo,unique,priority:2"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded
	ResultMessageID *uint64 `gorm:"index"`
	Intent          string  `gorm:"type:varchar(16)"`
	Provider        string  `gorm:"type:varchar(64)"`

	// Filled when failed, including a reply that only carries an apology
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "advice_jobs" }
