package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vrsandeep/cne-console/internal/models"
)

var (
	errApproveInFlight = errors.New("an approval for this job is already in progress")
	errAlreadyApproved = errors.New("job is already approved")
)

type approveRequest struct {
	Notes string `json:"notes"`
}

// approve forwards one approval to the backend. A second approval for the
// same job while one is in flight, or for a job the tracker already knows
// as approved, is refused.
func (s *Server) approve(r *http.Request, id, notes string) (*models.ApproveResult, error) {
	if rec, ok := s.app.Tracker.Record(id); ok && rec.State == models.StateApproved {
		return nil, errAlreadyApproved
	}

	s.approveMu.Lock()
	if s.approving[id] {
		s.approveMu.Unlock()
		return nil, errApproveInFlight
	}
	s.approving[id] = true
	s.approveMu.Unlock()
	defer func() {
		s.approveMu.Lock()
		delete(s.approving, id)
		s.approveMu.Unlock()
	}()

	result, err := s.app.Client.Approve(r.Context(), id, notes)
	if err != nil {
		return nil, err
	}

	if _, err := s.app.Store.RecordApproval(id, notes, result); err != nil {
		s.logger.Error("Could not record approval", "job_id", id, "error", err)
	}
	s.app.Tracker.Refresh(id)
	s.logger.Info("Job approved", "job_id", id, "dataset_path", deref(result.DatasetPath))
	return result, nil
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.approve(r, id, req.Notes)
	switch {
	case errors.Is(err, errApproveInFlight), errors.Is(err, errAlreadyApproved):
		RespondWithError(w, http.StatusConflict, err.Error())
	case err != nil:
		respondWithBackendError(w, err)
	default:
		RespondWithJSON(w, http.StatusOK, result)
	}
}
