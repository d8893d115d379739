package domain

import "time"

// JobKind names a background operation.
type JobKind string

const (
	JobSyncNVD  JobKind = "sync_nvd"
	JobSyncKEV  JobKind = "sync_kev"
	JobMatchAll JobKind = "match_all"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job tracks one background operation submitted to the runner.
type Job struct {
	ID         string      `json:"id"`
	Kind       JobKind     `json:"kind"`
	Status     JobStatus   `json:"status"`
	QueuedAt   time.Time   `json:"queued_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j Job) Done() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}

// SyncResult is the outcome of an enumeration-feed synchronization.
type SyncResult struct {
	CountUpserted int `json:"count_upserted"`
	Days          int `json:"days"`
}

// KEVResult is the outcome of a known-exploited synchronization.
type KEVResult struct {
	CountMarked int `json:"count_marked"`
}
