package models

const (
	EventJobUpdated = "job.updated"
	EventJobRemoved = "job.removed"
)

// JobEvent is pushed to console clients whenever a tracked job changes.
type JobEvent struct {
	Type   string     `json:"type"`
	JobID  string     `json:"job_id"`
	Record *JobRecord `json:"record,omitempty"`
}
