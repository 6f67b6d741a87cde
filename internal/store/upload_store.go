package store

import (
	"database/sql"
	"strings"

	"github.com/vrsandeep/cne-console/internal/models"
)

// SaveUpload records the inspection of a file submitted from this console.
// A second upload for the same job replaces the first.
func (s *Store) SaveUpload(u *models.Upload) error {
	query := `
		INSERT INTO uploads (job_id, file_name, kind, size_bytes, pages, sheets, entries, thumbnail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			file_name = excluded.file_name,
			kind = excluded.kind,
			size_bytes = excluded.size_bytes,
			pages = excluded.pages,
			sheets = excluded.sheets,
			entries = excluded.entries,
			thumbnail = excluded.thumbnail,
			created_at = excluded.created_at;
	`
	_, err := s.db.Exec(query, u.JobID, u.FileName, u.Kind, u.SizeBytes, u.Pages,
		strings.Join(u.Sheets, "\n"), u.Entries, u.Thumbnail, u.CreatedAt)
	return err
}

// GetUpload returns the recorded upload for a job, or nil if the job was
// not submitted from this console.
func (s *Store) GetUpload(jobID string) (*models.Upload, error) {
	var u models.Upload
	var sheets string
	var thumbnail sql.NullString
	err := s.db.QueryRow(`
		SELECT job_id, file_name, kind, size_bytes, pages, sheets, entries, thumbnail, created_at
		FROM uploads WHERE job_id = ?`, jobID).Scan(
		&u.JobID, &u.FileName, &u.Kind, &u.SizeBytes, &u.Pages, &sheets, &u.Entries, &thumbnail, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sheets != "" {
		u.Sheets = strings.Split(sheets, "\n")
	}
	u.Thumbnail = thumbnail.String
	return &u, nil
}
