package models

import "time"

// RejectedFile is an inbox file that could not be submitted. It stays in
// the inbox until fixed or removed, and the entry is cleared once a later
// submission of the same path succeeds.
type RejectedFile struct {
	ID          int64        `json:"id"`
	Path        string       `json:"path"`
	FileName    string       `json:"file_name"`
	Reason      RejectReason `json:"reason"`
	Detail      string       `json:"detail"`
	SizeBytes   int64        `json:"size_bytes"`
	DetectedAt  time.Time    `json:"detected_at"`
	LastChecked time.Time    `json:"last_checked"`
}

type RejectReason string

const (
	RejectUnsupported RejectReason = "unsupported_format"
	RejectUnreadable  RejectReason = "unreadable_file"
	RejectBackend     RejectReason = "backend_rejected"
	RejectIO          RejectReason = "io_error"
)

// Label returns the Portuguese display label for the reason.
func (r RejectReason) Label() string {
	switch r {
	case RejectUnsupported:
		return "Formato não suportado"
	case RejectUnreadable:
		return "Ficheiro ilegível"
	case RejectBackend:
		return "Recusado pelo servidor"
	case RejectIO:
		return "Erro de leitura"
	default:
		return "Erro desconhecido"
	}
}
