package models

import "time"

// Upload kinds accepted by the backend.
const (
	KindPDF  = "pdf"
	KindDOCX = "docx"
	KindXLSX = "xlsx"
	KindZIP  = "zip"
)

// Upload describes a local file submitted from this console, as inspected
// before it was sent to the backend.
type Upload struct {
	JobID     string    `json:"job_id"`
	FileName  string    `json:"file_name"`
	Kind      string    `json:"kind"`
	SizeBytes int64     `json:"size_bytes"`
	Pages     int       `json:"pages,omitempty"`
	Sheets    []string  `json:"sheets,omitempty"`
	Entries   int       `json:"entries,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
