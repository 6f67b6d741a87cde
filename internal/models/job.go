package models

import "time"

// JobState is the lifecycle stage of a backend job.
type JobState string

const (
	StateQueued     JobState = "queued"
	StateProcessing JobState = "processing"
	StateReady      JobState = "ready"
	StateApproved   JobState = "approved"
	StateFailed     JobState = "failed"
)

// GroupOrder is the order in which job states are listed in the history view.
var GroupOrder = []JobState{StateProcessing, StateReady, StateApproved, StateQueued, StateFailed}

// Label returns the Portuguese display label for the state.
func (s JobState) Label() string {
	switch s {
	case StateQueued:
		return "Em fila"
	case StateProcessing:
		return "A processar"
	case StateReady:
		return "Pronto"
	case StateApproved:
		return "Aprovado"
	case StateFailed:
		return "Falhou"
	default:
		return string(s)
	}
}

// IsTerminal reports whether the backend will not move the job on its own.
func (s JobState) IsTerminal() bool {
	return s == StateReady || s == StateApproved || s == StateFailed
}

type JobStats struct {
	RowsTotal   *int     `json:"rows_total,omitempty"`
	RowsOK      *int     `json:"rows_ok,omitempty"`
	RowsWarn    *int     `json:"rows_warn,omitempty"`
	RowsErr     *int     `json:"rows_err,omitempty"`
	OCRConfMean *float64 `json:"ocr_conf_mean,omitempty"`
}

// JobStatus holds the server-derived fields of a job.
// Timestamps are kept as the backend sends them (ISO-8601, zone optional).
type JobStatus struct {
	JobID      string    `json:"job_id"`
	State      JobState  `json:"state"`
	CreatedAt  string    `json:"created_at"`
	UpdatedAt  string    `json:"updated_at"`
	InputFiles []string  `json:"input_files"`
	Pages      *int      `json:"pages,omitempty"`
	Stats      *JobStats `json:"stats,omitempty"`
	Error      *string   `json:"error,omitempty"`
}

// JobRecord is a tracked job as seen by the console: the last server
// snapshot plus client-only bookkeeping.
type JobRecord struct {
	JobStatus
	LastChecked time.Time `json:"last_checked,omitempty"`
	Loading     bool      `json:"loading"`
	Err         string    `json:"client_error,omitempty"`
}

type JobCreated struct {
	JobID  string   `json:"job_id"`
	Status JobState `json:"status"`
}

type ApproveResult struct {
	JobID       string  `json:"job_id"`
	Status      string  `json:"status"`
	DatasetPath *string `json:"dataset_path,omitempty"`
}

// Approval is an audit entry for an approval issued from this console.
type Approval struct {
	ID          int64     `json:"id"`
	JobID       string    `json:"job_id"`
	Notes       string    `json:"notes"`
	Status      string    `json:"status"`
	DatasetPath string    `json:"dataset_path"`
	ApprovedAt  time.Time `json:"approved_at"`
}

// StateCount is one bucket of the grouped history view.
type StateCount struct {
	State JobState `json:"state"`
	Label string   `json:"label"`
	Count int      `json:"count"`
}

// ParseTimestamp parses a backend timestamp, accepting values with or
// without a zone offset. Unparseable values return the zero time.
func ParseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
