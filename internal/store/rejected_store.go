package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/vrsandeep/cne-console/internal/models"
)

// RecordRejected adds or refreshes the rejection entry for path. The
// original detection time is kept when the same path is rejected again.
func (s *Store) RecordRejected(path string, reason models.RejectReason, detail string, size int64) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO rejected_files (path, file_name, reason, detail, size_bytes, detected_at, last_checked)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			reason = excluded.reason,
			detail = excluded.detail,
			size_bytes = excluded.size_bytes,
			last_checked = excluded.last_checked`,
		path, filepath.Base(path), reason, detail, size, now, now)
	if err != nil {
		return fmt.Errorf("failed to record rejected file: %w", err)
	}
	return nil
}

// ListRejected returns every rejected file, most recently checked first.
func (s *Store) ListRejected() ([]*models.RejectedFile, error) {
	rows, err := s.db.Query(`
		SELECT id, path, file_name, reason, detail, size_bytes, detected_at, last_checked
		FROM rejected_files
		ORDER BY last_checked DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejected files: %w", err)
	}
	defer rows.Close()

	files := make([]*models.RejectedFile, 0)
	for rows.Next() {
		f := &models.RejectedFile{}
		if err := rows.Scan(&f.ID, &f.Path, &f.FileName, &f.Reason, &f.Detail, &f.SizeBytes, &f.DetectedAt, &f.LastChecked); err != nil {
			return nil, fmt.Errorf("failed to scan rejected file row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteRejected removes an entry by id. It reports whether one existed.
func (s *Store) DeleteRejected(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM rejected_files WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete rejected file: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) DeleteRejectedByPath(path string) error {
	if _, err := s.db.Exec(`DELETE FROM rejected_files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete rejected file by path: %w", err)
	}
	return nil
}

func (s *Store) CountRejected() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM rejected_files`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rejected files: %w", err)
	}
	return count, nil
}
