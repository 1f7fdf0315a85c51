package model

import (
	"time"

	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

// JobStatus represents the state of a conversion job
type JobStatus string

const (
	// JobStatusPending means the job is queued and waiting for a worker
	JobStatusPending JobStatus = "pending"

	// JobStatusRunning means a worker is running the extractor
	JobStatusRunning JobStatus = "running"

	// JobStatusSucceeded means the output file is ready
	JobStatusSucceeded JobStatus = "succeeded"

	// JobStatusFailed means the job ended with an error
	JobStatusFailed JobStatus = "failed"
)

// IsFinished returns true for terminal states
func (s JobStatus) IsFinished() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is the status record of an asynchronous conversion
type Job struct {
	ID          types.JobID `json:"id" firestore:"id"`
	URL         string      `json:"url" firestore:"url"`
	Status      JobStatus   `json:"status" firestore:"status"`
	Percent     int         `json:"percent" firestore:"percent"`
	Title       string      `json:"title,omitempty" firestore:"title"`
	Filename    string      `json:"filename,omitempty" firestore:"filename"`
	Size        int64       `json:"size,omitempty" firestore:"size"`
	ArtifactKey string      `json:"-" firestore:"artifact_key"`
	ErrorCode   string      `json:"error_code,omitempty" firestore:"error_code"`
	Error       string      `json:"error,omitempty" firestore:"error"`
	CreatedAt   time.Time   `json:"created_at" firestore:"created_at"`
	StartedAt   time.Time   `json:"started_at,omitzero" firestore:"started_at"`
	FinishedAt  time.Time   `json:"finished_at,omitzero" firestore:"finished_at"`
	ExpiresAt   time.Time   `json:"expires_at,omitzero" firestore:"expires_at"`
}

// NewJob creates a pending job for url
func NewJob(id types.JobID, url string, now time.Time) *Job {
	return &Job{
		ID:        id,
		URL:       url,
		Status:    JobStatusPending,
		CreatedAt: now,
	}
}

// Start marks the job as running
func (j *Job) Start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = now
}

// Succeed records the artifact and marks the job as succeeded
func (j *Job) Succeed(artifact *Artifact, key string, now, expiresAt time.Time) {
	j.Status = JobStatusSucceeded
	j.Percent = 100
	j.Title = artifact.Title
	j.Filename = artifact.Name
	j.Size = artifact.Size
	j.ArtifactKey = key
	j.FinishedAt = now
	j.ExpiresAt = expiresAt
}

// Fail records the error and marks the job as failed
func (j *Job) Fail(code, message string, now, expiresAt time.Time) {
	j.Status = JobStatusFailed
	j.ErrorCode = code
	j.Error = message
	j.FinishedAt = now
	j.ExpiresAt = expiresAt
}

// Expired returns true when the job has a deadline and it has passed
func (j *Job) Expired(now time.Time) bool {
	return !j.ExpiresAt.IsZero() && now.After(j.ExpiresAt)
}
