package api

import (
	"errors"
	"net/http"

	"github.com/vrsandeep/cne-console/internal/backend"
	"github.com/vrsandeep/cne-console/internal/inbox"
	"github.com/vrsandeep/cne-console/internal/models"
)

type jobListResponse struct {
	Jobs   []models.JobRecord  `json:"jobs"`
	Groups []models.StateCount `json:"groups"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, jobListResponse{
		Jobs:   s.app.Tracker.Sorted(),
		Groups: s.app.Tracker.Grouped(),
	})
}

// handleGetJob returns the tracked record, or asks the backend directly for
// a job that is not tracked.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	if rec, ok := s.app.Tracker.Record(id); ok {
		RespondWithJSON(w, http.StatusOK, rec)
		return
	}

	status, err := s.app.Client.GetJob(r.Context(), id)
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, models.JobRecord{JobStatus: *status})
}

func (s *Server) handleTrackJob(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	added := s.app.Tracker.Add(id)
	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	RespondWithJSON(w, code, map[string]any{"job_id": id, "added": added})
}

func (s *Server) handleUntrackJob(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	if !s.app.Tracker.Remove(id) {
		RespondWithError(w, http.StatusNotFound, "Job is not tracked")
		return
	}
	s.dropPreview(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshJob(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	if !s.app.Tracker.Refresh(id) {
		RespondWithError(w, http.StatusNotFound, "Job is not tracked")
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := s.submitMultipart(r)
	if err != nil {
		s.respondWithUploadError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, upload)
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := s.app.Store.ListApprovals(jobIDFromContext(r))
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list approvals")
		return
	}
	if approvals == nil {
		approvals = []*models.Approval{}
	}
	RespondWithJSON(w, http.StatusOK, approvals)
}

var errNoFile = errors.New("no file in upload")

// submitMultipart reads the "file" and "infer_only" form fields and submits
// the file through the inbox service.
func (s *Server) submitMultipart(r *http.Request) (*models.Upload, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errNoFile
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	inferOnly := s.app.Config.Inbox.InferOnly
	switch r.FormValue("infer_only") {
	case "true", "1", "on":
		inferOnly = true
	case "false", "0":
		inferOnly = false
	}
	return s.app.Inbox.SubmitReader(r.Context(), header.Filename, file, inferOnly)
}

func (s *Server) respondWithUploadError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, errNoFile):
		RespondWithError(w, http.StatusBadRequest, "A file is required")
	case errors.As(err, &apiErr):
		respondWithBackendError(w, err)
	case errors.Is(err, inbox.ErrUnsupportedFile):
		RespondWithError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, inbox.ErrUnreadableFile):
		RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("Upload failed", "error", err)
		RespondWithError(w, http.StatusBadGateway, err.Error())
	}
}
