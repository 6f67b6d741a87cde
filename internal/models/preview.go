package models

// ValidationFlag is the per-field outcome attached by the backend validator.
type ValidationFlag string

const (
	FlagOK      ValidationFlag = "OK"
	FlagWarning ValidationFlag = "AVISO"
	FlagError   ValidationFlag = "ERRO"
)

// PreviewRow is one extracted candidate-list entry. Field names on the
// wire are the column names of the CNE import format.
type PreviewRow struct {
	District       string                    `json:"DTMNFR"`
	Body           string                    `json:"ORGAO"`
	ListType       string                    `json:"TIPO"`
	Acronym        string                    `json:"SIGLA"`
	Symbol         *string                   `json:"SIMBOLO,omitempty"`
	ListName       *string                   `json:"NOME_LISTA,omitempty"`
	Order          int                       `json:"NUM_ORDEM"`
	Candidate      string                    `json:"NOME_CANDIDATO"`
	ProposingParty *string                   `json:"PARTIDO_PROPONENTE,omitempty"`
	Independent    *string                   `json:"INDEPENDENTE,omitempty"`
	Validation     map[string]ValidationFlag `json:"__validation__"`
}

// Flag returns the validation flag for a field, defaulting to OK.
func (r PreviewRow) Flag(field string) ValidationFlag {
	if f, ok := r.Validation[field]; ok {
		return f
	}
	return FlagOK
}

// Flagged reports whether any field carries a warning or an error.
func (r PreviewRow) Flagged() bool {
	for _, f := range r.Validation {
		if f == FlagWarning || f == FlagError {
			return true
		}
	}
	return false
}

type PreviewPage struct {
	JobID string       `json:"job_id"`
	Page  int          `json:"page"`
	Size  int          `json:"size"`
	Total int          `json:"total"`
	Rows  []PreviewRow `json:"rows"`
}
