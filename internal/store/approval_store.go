package store

import (
	"time"

	"github.com/vrsandeep/cne-console/internal/models"
)

// RecordApproval appends an audit entry for an approval accepted by the backend.
func (s *Store) RecordApproval(jobID, notes string, result *models.ApproveResult) (*models.Approval, error) {
	a := &models.Approval{
		JobID:      jobID,
		Notes:      notes,
		Status:     result.Status,
		ApprovedAt: time.Now().UTC(),
	}
	if result.DatasetPath != nil {
		a.DatasetPath = *result.DatasetPath
	}
	res, err := s.db.Exec(`
		INSERT INTO approvals (job_id, notes, status, dataset_path, approved_at)
		VALUES (?, ?, ?, ?, ?)`, a.JobID, a.Notes, a.Status, a.DatasetPath, a.ApprovedAt)
	if err != nil {
		return nil, err
	}
	a.ID, _ = res.LastInsertId()
	return a, nil
}

// ListApprovals returns the approvals recorded for a job, newest first.
func (s *Store) ListApprovals(jobID string) ([]*models.Approval, error) {
	rows, err := s.db.Query(`
		SELECT id, job_id, notes, status, dataset_path, approved_at
		FROM approvals WHERE job_id = ? ORDER BY approved_at DESC, id DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvals []*models.Approval
	for rows.Next() {
		var a models.Approval
		if err := rows.Scan(&a.ID, &a.JobID, &a.Notes, &a.Status, &a.DatasetPath, &a.ApprovedAt); err != nil {
			return nil, err
		}
		approvals = append(approvals, &a)
	}
	return approvals, rows.Err()
}
